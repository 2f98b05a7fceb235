package engine_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nnorbert/codedam/internal/engine"
	"github.com/nnorbert/codedam/internal/persistence"
	"github.com/nnorbert/codedam/pkg/api"
	"github.com/nnorbert/codedam/pkg/widgets"
)

func eventTypes(evs []api.RunEvent) []api.EventType {
	out := make([]api.EventType, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}

func TestJournalObserver_RecordsRun(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewInMemoryEventStore()
	ctrl := engine.NewControllerWithConfig(engine.Config{
		Observer: engine.NewJournalObserver(store, nil),
	})

	prog := newProgram(t, nil)
	x := widgets.NewCreateVariable("x", lit(4))
	place(t, prog, x)

	require.NoError(t, ctrl.Start(ctx, prog))
	for !step(t, ctrl).Done {
	}

	evs, err := store.ListEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, []api.EventType{
		api.EventRunStarted,
		api.EventStep,
		api.EventAwaitStarted,
		api.EventAwaitSettled,
		api.EventScopeChanged,
		api.EventRunFinished,
	}, eventTypes(evs))

	require.Equal(t, x.ID(), evs[1].WidgetID)
	require.Equal(t, "create_variable", evs[1].WidgetTag)
	require.Equal(t, 1, evs[1].Step)
	require.NotNil(t, evs[4].Snapshot)
	v, ok := evs[4].Snapshot.Lookup("x")
	require.True(t, ok)
	require.Equal(t, 4.0, v.Value)
	for _, ev := range evs {
		require.Equal(t, "Program", ev.Program)
		require.False(t, ev.At.IsZero())
	}
}

func TestJournalObserver_RecordsStopAndFailure(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewInMemoryEventStore()
	ctrl := engine.NewControllerWithConfig(engine.Config{
		Observer: engine.NewJournalObserver(store, nil),
	})

	prog := newProgram(t, nil)
	place(t, prog, widgets.NewPrint(nil, widgets.NewArithmetic(widgets.OpMod, lit(1), lit(0))))

	require.NoError(t, ctrl.Start(ctx, prog))
	ctrl.Stop()

	require.NoError(t, ctrl.Start(ctx, prog))
	step(t, ctrl)
	_, err := ctrl.Step(ctx)
	require.Error(t, err)

	stopped, err := store.ListEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, []api.EventType{api.EventRunStarted, api.EventRunStopped}, eventTypes(stopped))

	failed, err := store.ListEvents(ctx, "run-2")
	require.NoError(t, err)
	last := failed[len(failed)-1]
	require.Equal(t, api.EventRunFailed, last.Type)
	require.Contains(t, last.Detail, api.ErrDivisionByZero.Error())

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, api.EventRunStopped, runs[0].LastType)
	require.Equal(t, api.EventRunFailed, runs[1].LastType)
}

type failingStore struct {
	persistence.NoopEventStore
}

func (failingStore) AppendEvent(ctx context.Context, ev api.RunEvent) error {
	return errors.New("disk full")
}

func TestJournalObserver_AppendFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctrl := engine.NewControllerWithConfig(engine.Config{
		Observer: engine.NewJournalObserver(failingStore{}, logger),
	})

	prog := newProgram(t, nil)
	place(t, prog, widgets.NewPrint(nil, lit("hi")))
	require.NoError(t, ctrl.Start(context.Background(), prog))
	for !step(t, ctrl).Done {
	}

	require.Equal(t, api.StatusFinished, ctrl.Status())
	require.Contains(t, buf.String(), "journal_append_failed")
	require.Contains(t, buf.String(), "disk full")
}

func TestJournalObserver_WithSessionPrefixesRunIDs(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewInMemoryEventStore()
	ctrl := engine.NewControllerWithConfig(engine.Config{
		Observer: engine.NewJournalObserver(store, nil).WithSession("s1"),
	})

	prog := newProgram(t, nil)
	place(t, prog, widgets.NewPrint(nil, lit("hi")))
	require.NoError(t, ctrl.Start(ctx, prog))
	for !step(t, ctrl).Done {
	}

	_, err := store.ListEvents(ctx, "run-1")
	require.ErrorIs(t, err, persistence.ErrRunNotFound)

	evs, err := store.ListEvents(ctx, "s1/run-1")
	require.NoError(t, err)
	require.Equal(t, api.EventRunStarted, evs[0].Type)
	require.Equal(t, api.EventRunFinished, evs[len(evs)-1].Type)
}
