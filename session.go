package codedam

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nnorbert/codedam/internal/engine"
	"github.com/nnorbert/codedam/pkg/api"
	"github.com/nnorbert/codedam/pkg/widgets"
)

// SessionConfig configures a Session.
type SessionConfig struct {
	// Observer receives run lifecycle callbacks in addition to the
	// session's own metrics. Nil means none.
	Observer Observer

	// Logger, when set, adds a LoggingObserver writing to it.
	Logger *slog.Logger
}

// Session bundles a program, the controller driving it and run metrics
// to provide a simple way to execute a program from Go code.
//
// Typical usage:
//
//	prog := codedam.NewBuilder("demo").Var("x", codedam.Num(1)).MustBuild(ctx, nil)
//	s := codedam.NewSession(prog, codedam.SessionConfig{})
//	_ = s.Start(ctx)
//
//	// One step at a time:
//	res, err := s.Step(ctx)
//
//	// Or auto-play and wait:
//	_ = s.Play(250 * time.Millisecond)
//	err = s.Wait(ctx)
type Session struct {
	// Program is the root body being executed.
	Program *Executor

	// Controller drives runs of Program.
	Controller *Controller

	// Metrics counts runs, steps and awaits of this session.
	Metrics *BasicMetrics

	watch *runWatcher
}

// NewSession constructs a Session for program.
func NewSession(program *Executor, cfg SessionConfig) *Session {
	metrics := &api.BasicMetrics{}
	watch := &runWatcher{}

	observers := []api.Observer{metrics, watch}
	if cfg.Logger != nil {
		observers = append(observers, api.NewLoggingObserver(cfg.Logger))
	}
	if cfg.Observer != nil {
		observers = append(observers, cfg.Observer)
	}

	return &Session{
		Program:    program,
		Controller: engine.NewControllerWithConfig(engine.Config{Observer: api.NewCompositeObserver(observers...)}),
		Metrics:    metrics,
		watch:      watch,
	}
}

// Start begins a new run of the program, stopping any run in progress.
func (s *Session) Start(ctx context.Context) error {
	return s.Controller.Start(ctx, s.Program)
}

// Step advances the run by one step.
func (s *Session) Step(ctx context.Context) (StepResult, error) {
	return s.Controller.Step(ctx)
}

// RunToEnd steps the current run until it finishes. It returns the run
// failure, if any, or ErrNotStarted when the run was stopped meanwhile.
func (s *Session) RunToEnd(ctx context.Context) error {
	for {
		res, err := s.Controller.Step(ctx)
		if err != nil {
			return err
		}
		if res.Done {
			return nil
		}
	}
}

// Play auto-steps the current run every interval.
func (s *Session) Play(interval time.Duration) error {
	return s.Controller.Play(interval)
}

// Pause cancels auto-play.
func (s *Session) Pause() {
	s.Controller.Pause()
}

// Stop abandons the current run. It is safe to call multiple times.
func (s *Session) Stop() {
	s.Controller.Stop()
}

// Wait blocks until the current run finishes, fails or is stopped, or
// ctx is done. It returns the run failure, if any.
func (s *Session) Wait(ctx context.Context) error {
	done := s.watch.current()
	if done == nil {
		return api.ErrNotStarted
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.Controller.Status() == api.StatusFailed {
		return s.Controller.Err()
	}
	return nil
}

// Status is the controller status.
func (s *Session) Status() Status {
	return s.Controller.Status()
}

// Snapshot is the most recent execution-stack snapshot.
func (s *Session) Snapshot() Snapshot {
	return s.Controller.Snapshot()
}

// Preview renders the program source with the lines of the active widgets
// marked.
func (s *Session) Preview() string {
	return widgets.Format(widgets.Preview(s.Program), s.Controller.ActiveLineKeys())
}

// Close stops the current run and destroys the program.
func (s *Session) Close() {
	s.Controller.Stop()
	s.Program.Destroy()
}

// runWatcher exposes the end of the current run as a channel.
type runWatcher struct {
	api.NoopObserver

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

func (w *runWatcher) current() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

func (w *runWatcher) settle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil && !w.closed {
		close(w.done)
		w.closed = true
	}
}

func (w *runWatcher) OnRunStart(ctx context.Context, run *api.RunInfo) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = make(chan struct{})
	w.closed = false
}

func (w *runWatcher) OnRunFinished(ctx context.Context, run *api.RunInfo) { w.settle() }
func (w *runWatcher) OnRunStopped(ctx context.Context, run *api.RunInfo)  { w.settle() }
func (w *runWatcher) OnRunFailed(ctx context.Context, run *api.RunInfo, err error) {
	w.settle()
}
