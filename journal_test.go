package codedam

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJournal_RecordsSessionRuns(t *testing.T) {
	ctx := context.Background()
	j, err := OpenJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	prog := NewBuilder("journaled").
		Var("x", Num(2)).
		Set("x", Add(Ref("x"), Num(1))).
		MustBuild(ctx, nil)

	s := NewSession(prog, SessionConfig{Observer: j.Observer("s1", nil)})
	defer s.Close()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.RunToEnd(ctx))

	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "s1/run-1", runs[0].RunID)
	require.Equal(t, "journaled", runs[0].Program)
	require.Equal(t, EventType("run.finished"), runs[0].LastType)

	evs, err := j.Events(ctx, "s1/run-1")
	require.NoError(t, err)
	require.Equal(t, runs[0].Events, len(evs))

	var last *Snapshot
	for _, ev := range evs {
		if ev.Snapshot != nil {
			last = ev.Snapshot
		}
	}
	require.NotNil(t, last)
	v, ok := last.Lookup("x")
	require.True(t, ok)
	require.Equal(t, 3.0, v.Value)

	_, err = j.Events(ctx, "s1/run-2")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestJournal_SessionsShareAFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	for _, session := range []string{"a", "b"} {
		j, err := OpenJournal(path)
		require.NoError(t, err)

		prog := NewBuilder("p").Print(Text("hi")).MustBuild(ctx, nil)
		s := NewSession(prog, SessionConfig{Observer: j.Observer(session, nil)})
		require.NoError(t, s.Start(ctx))
		require.NoError(t, s.RunToEnd(ctx))
		s.Close()
		require.NoError(t, j.Close())
	}

	j, err := OpenJournal(path)
	require.NoError(t, err)
	defer j.Close()
	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "a/run-1", runs[0].RunID)
	require.Equal(t, "b/run-1", runs[1].RunID)
}

func TestJournal_BorrowedDatabaseStaysOpen(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	j, err := NewJournal(db)
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, db.Ping())
	require.NotEmpty(t, NewSessionID())
}
