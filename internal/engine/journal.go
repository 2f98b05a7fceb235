package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/nnorbert/codedam/internal/persistence"
	"github.com/nnorbert/codedam/pkg/api"
)

// JournalObserver appends every run event to an EventStore. Append
// failures are logged and never affect the run.
type JournalObserver struct {
	store  persistence.EventStore
	logger *slog.Logger
	now    func() time.Time
	prefix string
}

var _ api.Observer = (*JournalObserver)(nil)

// NewJournalObserver returns an observer writing to store. A nil logger
// means slog.Default().
func NewJournalObserver(store persistence.EventStore, logger *slog.Logger) *JournalObserver {
	if store == nil {
		store = persistence.NoopEventStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalObserver{store: store, logger: logger, now: time.Now}
}

// WithSession records run ids as session/run-id, which keeps runs of
// different processes sharing one store apart. It returns j.
func (j *JournalObserver) WithSession(session string) *JournalObserver {
	if session != "" {
		j.prefix = session + "/"
	}
	return j
}

func (j *JournalObserver) append(ctx context.Context, run *api.RunInfo, ev api.RunEvent) {
	ev.RunID = j.prefix + run.ID
	ev.Program = run.Program
	ev.Step = run.Steps
	ev.At = j.now()
	// The run context may already be cancelled when a stop is recorded.
	if err := j.store.AppendEvent(context.WithoutCancel(ctx), ev); err != nil {
		j.logger.WarnContext(ctx, "journal_append_failed",
			slog.String("run_id", ev.RunID),
			slog.String("type", string(ev.Type)),
			slog.Any("error", err),
		)
	}
}

func (j *JournalObserver) OnRunStart(ctx context.Context, run *api.RunInfo) {
	j.append(ctx, run, api.RunEvent{Type: api.EventRunStarted})
}

func (j *JournalObserver) OnStep(ctx context.Context, run *api.RunInfo, w api.Widget) {
	j.append(ctx, run, api.RunEvent{
		Type:      api.EventStep,
		WidgetID:  w.ID(),
		WidgetTag: w.Descriptor().Tag,
	})
}

func (j *JournalObserver) OnAwaitStart(ctx context.Context, run *api.RunInfo) {
	j.append(ctx, run, api.RunEvent{Type: api.EventAwaitStarted})
}

func (j *JournalObserver) OnAwaitSettled(ctx context.Context, run *api.RunInfo, err error, d time.Duration) {
	detail := d.String()
	if err != nil {
		detail = err.Error()
	}
	j.append(ctx, run, api.RunEvent{Type: api.EventAwaitSettled, Detail: detail})
}

func (j *JournalObserver) OnScopeChange(ctx context.Context, run *api.RunInfo, snap api.Snapshot) {
	j.append(ctx, run, api.RunEvent{Type: api.EventScopeChanged, Snapshot: &snap})
}

func (j *JournalObserver) OnRunFinished(ctx context.Context, run *api.RunInfo) {
	j.append(ctx, run, api.RunEvent{Type: api.EventRunFinished})
}

func (j *JournalObserver) OnRunFailed(ctx context.Context, run *api.RunInfo, err error) {
	j.append(ctx, run, api.RunEvent{Type: api.EventRunFailed, Detail: err.Error()})
}

func (j *JournalObserver) OnRunStopped(ctx context.Context, run *api.RunInfo) {
	j.append(ctx, run, api.RunEvent{Type: api.EventRunStopped})
}
