package codedam

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nnorbert/codedam/internal/engine"
	"github.com/nnorbert/codedam/internal/persistence"
	"github.com/nnorbert/codedam/pkg/api"
)

type (
	// RunEvent is one journal record.
	RunEvent = api.RunEvent
	// EventType identifies a journal record.
	EventType = api.EventType
	// RunSummary is one row of the journal's run index.
	RunSummary = persistence.RunSummary
)

// Journal is an append-only SQLite history of runs, kept for debugging.
// It is never read back to restore execution.
type Journal struct {
	db     *sql.DB
	owned  bool
	events *persistence.SQLiteEventStore
}

// OpenJournal opens, creating if needed, the SQLite journal at path.
// The special path ":memory:" keeps the journal in memory.
//
// Typical usage:
//
//	j, _ := codedam.OpenJournal("runs.db")
//	defer j.Close()
//	s := codedam.NewSession(prog, codedam.SessionConfig{Observer: j.Observer(codedam.NewSessionID(), logger)})
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	j, err := NewJournal(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	j.owned = true
	return j, nil
}

// NewJournal uses an already opened SQLite database. The caller keeps
// ownership of db.
func NewJournal(db *sql.DB) (*Journal, error) {
	events, err := persistence.NewSQLiteEventStore(db)
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}
	return &Journal{db: db, events: events}, nil
}

// ErrRunNotFound is returned by Events for a run without records.
var ErrRunNotFound = persistence.ErrRunNotFound

// Observer returns an observer recording runs into the journal under
// session/run-id. An empty session records bare run ids. Append failures
// are logged to logger and never affect the run; a nil logger means
// slog.Default().
func (j *Journal) Observer(session string, logger *slog.Logger) Observer {
	return engine.NewJournalObserver(j.events, logger).WithSession(session)
}

// NewSessionID returns a random journal session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Events lists the events of runID in the order they were recorded.
func (j *Journal) Events(ctx context.Context, runID string) ([]RunEvent, error) {
	return j.events.ListEvents(ctx, runID)
}

// Runs lists the recorded runs, oldest first.
func (j *Journal) Runs(ctx context.Context) ([]RunSummary, error) {
	return j.events.ListRuns(ctx)
}

// Close closes the database when the journal opened it.
func (j *Journal) Close() error {
	if !j.owned {
		return nil
	}
	return j.db.Close()
}
