package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// countingObserver counts every callback it receives.
type countingObserver struct {
	mu sync.Mutex

	starts, steps, awaitStarts, awaitSettles int
	scopes, finishes, fails, stops           int

	lastErr  error
	lastStep Widget
}

func (o *countingObserver) OnRunStart(ctx context.Context, run *RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
}

func (o *countingObserver) OnStep(ctx context.Context, run *RunInfo, w Widget) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps++
	o.lastStep = w
}

func (o *countingObserver) OnAwaitStart(ctx context.Context, run *RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.awaitStarts++
}

func (o *countingObserver) OnAwaitSettled(ctx context.Context, run *RunInfo, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.awaitSettles++
}

func (o *countingObserver) OnScopeChange(ctx context.Context, run *RunInfo, snap Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scopes++
}

func (o *countingObserver) OnRunFinished(ctx context.Context, run *RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finishes++
}

func (o *countingObserver) OnRunFailed(ctx context.Context, run *RunInfo, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fails++
	o.lastErr = err
}

func (o *countingObserver) OnRunStopped(ctx context.Context, run *RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stops++
}

// recordingHandler is a minimal slog.Handler that just records log records.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(name string) slog.Handler       { return h }

func attrsToMap(r slog.Record) map[string]any {
	m := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})
	return m
}

// stubWidget is the smallest Widget satisfying the interface.
type stubWidget struct {
	Widget
	id string
}

func (w stubWidget) ID() string { return w.id }
func (w stubWidget) Descriptor() Descriptor {
	return Descriptor{Tag: "print", Category: CategoryIO, Role: RoleStatement}
}

func newTestRun() *RunInfo {
	return &RunInfo{ID: "run-7", Program: "Program", Status: StatusRunning, Steps: 3}
}

func TestNoopObserver_DoesNotPanic(t *testing.T) {
	ctx := context.Background()
	run := newTestRun()
	var o Observer = NoopObserver{}

	o.OnRunStart(ctx, run)
	o.OnStep(ctx, run, stubWidget{id: "w"})
	o.OnAwaitStart(ctx, run)
	o.OnAwaitSettled(ctx, run, nil, time.Second)
	o.OnScopeChange(ctx, run, Snapshot{})
	o.OnRunFinished(ctx, run)
	o.OnRunFailed(ctx, run, errors.New("boom"))
	o.OnRunStopped(ctx, run)
}

func TestNewCompositeObserver_Collapses(t *testing.T) {
	if _, ok := NewCompositeObserver().(NoopObserver); !ok {
		t.Fatalf("expected NoopObserver for no observers")
	}
	single := &countingObserver{}
	if got := NewCompositeObserver(nil, single); got != single {
		t.Fatalf("expected the single non-nil observer, got %T", got)
	}
	if _, ok := NewCompositeObserver(single, &countingObserver{}).(*CompositeObserver); !ok {
		t.Fatalf("expected *CompositeObserver for two observers")
	}
}

func TestCompositeObserver_ForwardsAllEvents(t *testing.T) {
	ctx := context.Background()
	run := newTestRun()
	o1, o2 := &countingObserver{}, &countingObserver{}
	co := NewCompositeObserver(o1, o2)

	w := stubWidget{id: "w-1"}
	err := errors.New("boom")
	co.OnRunStart(ctx, run)
	co.OnStep(ctx, run, w)
	co.OnAwaitStart(ctx, run)
	co.OnAwaitSettled(ctx, run, nil, time.Millisecond)
	co.OnScopeChange(ctx, run, Snapshot{})
	co.OnRunFinished(ctx, run)
	co.OnRunFailed(ctx, run, err)
	co.OnRunStopped(ctx, run)

	for i, o := range []*countingObserver{o1, o2} {
		if o.starts != 1 || o.steps != 1 || o.awaitStarts != 1 || o.awaitSettles != 1 ||
			o.scopes != 1 || o.finishes != 1 || o.fails != 1 || o.stops != 1 {
			t.Fatalf("observer %d did not receive all calls: %+v", i+1, o)
		}
		if o.lastStep != w || o.lastErr != err {
			t.Fatalf("observer %d argument mismatch", i+1)
		}
	}
}

func TestLoggingObserver_NilLoggerUsesDefault(t *testing.T) {
	lo, ok := NewLoggingObserver(nil).(*LoggingObserver)
	if !ok {
		t.Fatalf("expected *LoggingObserver")
	}
	if lo.Logger == nil {
		t.Fatalf("expected non-nil Logger when created with nil")
	}
}

func TestLoggingObserver_StepAndFailure(t *testing.T) {
	ctx := context.Background()
	run := newTestRun()
	h := &recordingHandler{}
	o := NewLoggingObserver(slog.New(h))

	o.OnStep(ctx, run, stubWidget{id: "w-9"})
	o.OnAwaitSettled(ctx, run, errors.New("closed"), time.Second)
	o.OnRunFailed(ctx, run, errors.New("division by zero"))

	if len(h.records) != 3 {
		t.Fatalf("expected 3 log records, got %d", len(h.records))
	}

	step := h.records[0]
	if step.Level != slog.LevelDebug || step.Message != "step" {
		t.Fatalf("unexpected step record: %v %q", step.Level, step.Message)
	}
	attrs := attrsToMap(step)
	if attrs["widget_id"] != "w-9" || attrs["widget"] != "print" || attrs["run_id"] != "run-7" {
		t.Fatalf("unexpected step attrs: %v", attrs)
	}

	if h.records[1].Level != slog.LevelWarn {
		t.Fatalf("failed await should log at warn, got %v", h.records[1].Level)
	}

	failed := h.records[2]
	if failed.Level != slog.LevelError || failed.Message != "run_failed" {
		t.Fatalf("unexpected failure record: %v %q", failed.Level, failed.Message)
	}
	if attrsToMap(failed)["error"] == nil {
		t.Fatalf("expected error attribute on failure record")
	}
}

func TestBasicMetrics_CountersAndSnapshot(t *testing.T) {
	var m BasicMetrics
	ctx := context.Background()
	run := newTestRun()

	// 4 started, 1 finished, 1 failed, 1 stopped -> 1 active
	for range 4 {
		m.OnRunStart(ctx, run)
	}
	m.OnRunFinished(ctx, run)
	m.OnRunFailed(ctx, run, errors.New("fail"))
	m.OnRunStopped(ctx, run)

	m.OnStep(ctx, run, stubWidget{id: "a"})
	m.OnStep(ctx, run, stubWidget{id: "b"})
	m.OnAwaitSettled(ctx, run, nil, time.Second)
	m.OnAwaitSettled(ctx, run, nil, 3*time.Second)

	snap := m.Snapshot()
	if snap.RunsStarted != 4 || snap.RunsFinished != 1 || snap.RunsFailed != 1 || snap.RunsStopped != 1 {
		t.Fatalf("unexpected run counters: %+v", snap)
	}
	if snap.ActiveRuns != 1 {
		t.Fatalf("ActiveRuns=%d, want 1", snap.ActiveRuns)
	}
	if snap.Steps != 2 || snap.Awaits != 2 {
		t.Fatalf("Steps=%d Awaits=%d, want 2 and 2", snap.Steps, snap.Awaits)
	}
	if snap.AvgAwaitDuration != 2*time.Second {
		t.Fatalf("AvgAwaitDuration=%v, want 2s", snap.AvgAwaitDuration)
	}
}

func TestBasicMetrics_ZeroAwaitsHaveZeroAverage(t *testing.T) {
	var m BasicMetrics
	if snap := m.Snapshot(); snap.Awaits != 0 || snap.AvgAwaitDuration != 0 {
		t.Fatalf("unexpected empty snapshot: %+v", snap)
	}
}
