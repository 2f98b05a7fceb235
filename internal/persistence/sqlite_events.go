package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/nnorbert/codedam/pkg/api"
)

// SQLiteEventStore stores run events in SQLite.
type SQLiteEventStore struct {
	db *sql.DB
}

// Ensure SQLiteEventStore implements the interfaces.
var _ EventStore = (*SQLiteEventStore)(nil)

func NewSQLiteEventStore(db *sql.DB) (*SQLiteEventStore, error) {
	s := &SQLiteEventStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteEventStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			program TEXT NOT NULL DEFAULT '',
			step INTEGER NOT NULL DEFAULT 0,
			widget_id TEXT NOT NULL DEFAULT '',
			widget_tag TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			snapshot BLOB
		);
		CREATE INDEX IF NOT EXISTS idx_run_events_run_id ON run_events(run_id, id);
	`)
	return err
}

func (s *SQLiteEventStore) AppendEvent(ctx context.Context, ev api.RunEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	snap, err := encodeSnapshot(ev.Snapshot)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_events (run_id, at, type, program, step, widget_id, widget_tag, detail, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID,
		at.UnixNano(),
		string(ev.Type),
		ev.Program,
		ev.Step,
		ev.WidgetID,
		ev.WidgetTag,
		ev.Detail,
		snap,
	)
	return err
}

func (s *SQLiteEventStore) ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, at, type, program, step, widget_id, widget_tag, detail, snapshot
		FROM run_events
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.RunEvent
	for rows.Next() {
		var (
			id      string
			atN     int64
			typ     string
			program string
			step    int
			wid     string
			wtag    string
			detail  string
			blob    []byte
		)
		if err := rows.Scan(&id, &atN, &typ, &program, &step, &wid, &wtag, &detail, &blob); err != nil {
			return nil, err
		}
		snap, err := decodeSnapshot(blob)
		if err != nil {
			return nil, err
		}
		out = append(out, api.RunEvent{
			RunID:     id,
			At:        time.Unix(0, atN),
			Type:      api.EventType(typ),
			Program:   program,
			Step:      step,
			WidgetID:  wid,
			WidgetTag: wtag,
			Detail:    detail,
			Snapshot:  snap,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrRunNotFound
	}
	return out, nil
}

func (s *SQLiteEventStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.run_id, e.program, e.at, g.n, l.type
		FROM (SELECT run_id, MIN(id) AS first_id, MAX(id) AS last_id, COUNT(*) AS n
		      FROM run_events GROUP BY run_id) g
		JOIN run_events e ON e.id = g.first_id
		JOIN run_events l ON l.id = g.last_id
		ORDER BY g.first_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			sum RunSummary
			atN int64
			typ string
		)
		if err := rows.Scan(&sum.RunID, &sum.Program, &atN, &sum.Events, &typ); err != nil {
			return nil, err
		}
		sum.StartedAt = time.Unix(0, atN)
		sum.LastType = api.EventType(typ)
		out = append(out, sum)
	}
	return out, rows.Err()
}
