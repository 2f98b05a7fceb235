package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the execution controller for logging,
// metrics and journaling.
//
// Callbacks run on the goroutine driving the run. Implementations should be
// fast and must not call back into the controller.
type Observer interface {
	// OnRunStart is called once when a run is started, before any step.
	OnRunStart(ctx context.Context, run *RunInfo)

	// OnStep is called when a step checkpoint highlights w.
	OnStep(ctx context.Context, run *RunInfo, w Widget)

	// OnAwaitStart is called when the run starts waiting on an external
	// result.
	OnAwaitStart(ctx context.Context, run *RunInfo)

	// OnAwaitSettled is called when that result settled.
	OnAwaitSettled(ctx context.Context, run *RunInfo, err error, d time.Duration)

	// OnScopeChange is called after every variable write with the
	// rebuilt execution stack.
	OnScopeChange(ctx context.Context, run *RunInfo, snap Snapshot)

	// OnRunFinished is called when the sequence is exhausted.
	OnRunFinished(ctx context.Context, run *RunInfo)

	// OnRunFailed is called when a runtime error aborted the run.
	OnRunFailed(ctx context.Context, run *RunInfo, err error)

	// OnRunStopped is called when the run was stopped explicitly.
	OnRunStopped(ctx context.Context, run *RunInfo)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, run *RunInfo)                {}
func (NoopObserver) OnStep(ctx context.Context, run *RunInfo, w Widget)          {}
func (NoopObserver) OnAwaitStart(ctx context.Context, run *RunInfo)              {}
func (NoopObserver) OnScopeChange(ctx context.Context, run *RunInfo, s Snapshot) {}
func (NoopObserver) OnRunFinished(ctx context.Context, run *RunInfo)             {}
func (NoopObserver) OnRunFailed(ctx context.Context, run *RunInfo, err error)    {}
func (NoopObserver) OnRunStopped(ctx context.Context, run *RunInfo)              {}
func (NoopObserver) OnAwaitSettled(ctx context.Context, run *RunInfo, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, run *RunInfo) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, run)
	}
}

func (c *CompositeObserver) OnStep(ctx context.Context, run *RunInfo, w Widget) {
	for _, o := range c.observers {
		o.OnStep(ctx, run, w)
	}
}

func (c *CompositeObserver) OnAwaitStart(ctx context.Context, run *RunInfo) {
	for _, o := range c.observers {
		o.OnAwaitStart(ctx, run)
	}
}

func (c *CompositeObserver) OnAwaitSettled(ctx context.Context, run *RunInfo, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnAwaitSettled(ctx, run, err, d)
	}
}

func (c *CompositeObserver) OnScopeChange(ctx context.Context, run *RunInfo, snap Snapshot) {
	for _, o := range c.observers {
		o.OnScopeChange(ctx, run, snap)
	}
}

func (c *CompositeObserver) OnRunFinished(ctx context.Context, run *RunInfo) {
	for _, o := range c.observers {
		o.OnRunFinished(ctx, run)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, run *RunInfo, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnRunStopped(ctx context.Context, run *RunInfo) {
	for _, o := range c.observers {
		o.OnRunStopped(ctx, run)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run and step lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, run *RunInfo) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("program", run.Program),
		slog.String("run_id", run.ID),
	)
}

func (o *LoggingObserver) OnStep(ctx context.Context, run *RunInfo, w Widget) {
	o.Logger.DebugContext(ctx, "step",
		slog.String("run_id", run.ID),
		slog.Int("step", run.Steps),
		slog.String("widget", w.Descriptor().Tag),
		slog.String("widget_id", w.ID()),
	)
}

func (o *LoggingObserver) OnAwaitStart(ctx context.Context, run *RunInfo) {
	o.Logger.DebugContext(ctx, "await_start",
		slog.String("run_id", run.ID),
		slog.Int("step", run.Steps),
	)
}

func (o *LoggingObserver) OnAwaitSettled(ctx context.Context, run *RunInfo, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "await_settled",
		slog.String("run_id", run.ID),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnScopeChange(ctx context.Context, run *RunInfo, snap Snapshot) {
	o.Logger.DebugContext(ctx, "scope_change",
		slog.String("run_id", run.ID),
		slog.Int("frames", len(snap.Frames)),
	)
}

func (o *LoggingObserver) OnRunFinished(ctx context.Context, run *RunInfo) {
	o.Logger.InfoContext(ctx, "run_finished",
		slog.String("program", run.Program),
		slog.String("run_id", run.ID),
		slog.Int("steps", run.Steps),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, run *RunInfo, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("program", run.Program),
		slog.String("run_id", run.ID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnRunStopped(ctx context.Context, run *RunInfo) {
	o.Logger.InfoContext(ctx, "run_stopped",
		slog.String("program", run.Program),
		slog.String("run_id", run.ID),
	)
}

// BasicMetrics collects simple counters and aggregate await durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted        atomic.Int64
	runsFinished       atomic.Int64
	runsFailed         atomic.Int64
	runsStopped        atomic.Int64
	steps              atomic.Int64
	awaits             atomic.Int64
	totalAwaitDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted  int64
	RunsFinished int64
	RunsFailed   int64
	RunsStopped  int64
	ActiveRuns   int64

	Steps            int64
	Awaits           int64
	AvgAwaitDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, run *RunInfo) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnStep(ctx context.Context, run *RunInfo, w Widget) {
	m.steps.Add(1)
}

func (m *BasicMetrics) OnAwaitSettled(ctx context.Context, run *RunInfo, err error, d time.Duration) {
	m.awaits.Add(1)
	m.totalAwaitDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnRunFinished(ctx context.Context, run *RunInfo) {
	m.runsFinished.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, run *RunInfo, err error) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnRunStopped(ctx context.Context, run *RunInfo) {
	m.runsStopped.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	finished := m.runsFinished.Load()
	failed := m.runsFailed.Load()
	stopped := m.runsStopped.Load()
	awaits := m.awaits.Load()
	totalNs := m.totalAwaitDuration.Load()

	var avg time.Duration
	if awaits > 0 {
		avg = time.Duration(totalNs / awaits)
	}

	return BasicMetricsSnapshot{
		RunsStarted:      started,
		RunsFinished:     finished,
		RunsFailed:       failed,
		RunsStopped:      stopped,
		ActiveRuns:       started - finished - failed - stopped,
		Steps:            m.steps.Load(),
		Awaits:           awaits,
		AvgAwaitDuration: avg,
	}
}
