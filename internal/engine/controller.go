package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nnorbert/codedam/pkg/api"
)

// Controller drives one run of a root executor: single steps, pause,
// auto-play and stop. It is safe for concurrent use; the auto-play timer
// runs on its own goroutine.
type Controller struct {
	observer api.Observer
	nextID   atomic.Int64

	mu        sync.Mutex
	status    api.Status
	run       *activeRun
	info      api.RunInfo
	highlight api.Widget
	snapshot  api.Snapshot
	err       error

	autoPlay bool
	interval time.Duration
	playGen  uint64
	timer    *time.Timer
}

// activeRun is the state of one started run. Fields below seq are only
// touched while holding seq; busy and waiting are guarded by Controller.mu.
type activeRun struct {
	root   *Executor
	ctx    context.Context
	cancel context.CancelFunc

	busy    bool
	waiting bool

	// pending is only touched by the goroutine that set busy.
	pending      *api.Pending
	awaitStarted time.Time

	seq    sync.Mutex
	next   func() (api.Checkpoint, error, bool)
	stop   func()
	halted bool
}

// errRunDetached reports that the run was stopped while a step was in
// flight; callers translate it into an empty result.
var errRunDetached = errors.New("run detached")

// NewController returns a controller with default configuration.
func NewController() *Controller {
	return NewControllerWithConfig(Config{})
}

// NewControllerWithConfig returns a controller notifying cfg.Observer.
func NewControllerWithConfig(cfg Config) *Controller {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &Controller{
		observer: obs,
		status:   api.StatusIdle,
	}
}

// Start binds the controller to root and obtains its routine. A run
// already in progress is stopped first.
func (c *Controller) Start(ctx context.Context, root *Executor) error {
	if root == nil {
		return fmt.Errorf("start: nil executor")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Stop()

	root = root.Root()
	root.ResetScopeState()
	root.ResetVariables(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	next, stop := iter.Pull2(root.Execute(runCtx))
	r := &activeRun{
		root:   root,
		ctx:    runCtx,
		cancel: cancel,
		next:   next,
		stop:   stop,
	}

	c.mu.Lock()
	c.run = r
	c.status = api.StatusRunning
	c.err = nil
	c.clearHighlightLocked()
	c.snapshot = root.ExecutionStackSnapshot()
	c.info = api.RunInfo{
		ID:        fmt.Sprintf("run-%d", c.nextID.Add(1)),
		Program:   root.Name(),
		Status:    api.StatusRunning,
		StartedAt: time.Now(),
	}
	info := c.info
	c.mu.Unlock()

	root.SetScopeObserver(func(snap api.Snapshot) { c.onScope(r, snap) })
	c.observer.OnRunStart(ctx, &info)
	return nil
}

// Step advances the run to its next step checkpoint, transparently waiting
// on any await checkpoints before it.
//
// While another step is waiting on an external result Step is a no-op
// that reports the current highlight with Waiting set. Once the routine is
// exhausted the run finishes and Done is reported.
func (c *Controller) Step(ctx context.Context) (api.StepResult, error) {
	c.mu.Lock()
	r := c.run
	if r == nil {
		status, err := c.status, c.err
		c.mu.Unlock()
		switch status {
		case api.StatusFinished:
			return api.StepResult{Done: true}, nil
		case api.StatusFailed:
			return api.StepResult{}, err
		default:
			return api.StepResult{}, api.ErrNotStarted
		}
	}
	if r.busy {
		res := api.StepResult{Widget: c.highlight, Waiting: true}
		c.mu.Unlock()
		return res, nil
	}
	r.busy = true
	c.mu.Unlock()

	res, err := c.advance(ctx, r)

	c.mu.Lock()
	r.busy = false
	c.mu.Unlock()

	if errors.Is(err, errRunDetached) {
		return api.StepResult{}, nil
	}
	return res, err
}

func (c *Controller) advance(ctx context.Context, r *activeRun) (api.StepResult, error) {
	for {
		if r.pending != nil {
			if err := c.wait(ctx, r); err != nil {
				return api.StepResult{}, err
			}
		}
		if !c.attached(r) {
			return api.StepResult{}, errRunDetached
		}

		r.seq.Lock()
		if r.halted {
			r.seq.Unlock()
			return api.StepResult{}, errRunDetached
		}
		cp, err, ok := r.next()
		r.seq.Unlock()

		if !c.attached(r) {
			return api.StepResult{}, errRunDetached
		}
		if !ok {
			c.finish(ctx, r)
			return api.StepResult{Done: true}, nil
		}
		if err != nil {
			c.fail(ctx, r, err)
			return api.StepResult{}, err
		}

		switch cp.Kind {
		case api.CheckpointAwait:
			r.pending = cp.Pending
			r.awaitStarted = time.Now()
			c.mu.Lock()
			r.waiting = true
			c.info.Awaits++
			info := c.info
			c.mu.Unlock()
			c.observer.OnAwaitStart(ctx, &info)

		case api.CheckpointStep:
			c.mu.Lock()
			c.clearHighlightLocked()
			c.highlight = cp.Widget
			if cp.Widget != nil {
				cp.Widget.SetHighlighted(true)
			}
			c.info.Steps++
			info := c.info
			c.mu.Unlock()
			if cp.Widget != nil {
				c.observer.OnStep(ctx, &info, cp.Widget)
			}
			return api.StepResult{Widget: cp.Widget}, nil
		}
	}
}

// wait blocks until the pending await settles. If ctx ends first the
// await stays pending and the next Step resumes waiting on it.
func (c *Controller) wait(ctx context.Context, r *activeRun) error {
	p := r.pending
	select {
	case <-p.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		if !c.attached(r) {
			return errRunDetached
		}
		err := context.Cause(r.ctx)
		c.fail(ctx, r, err)
		return err
	}

	r.pending = nil
	_, perr := p.Result()
	c.mu.Lock()
	r.waiting = false
	info := c.info
	c.mu.Unlock()
	c.observer.OnAwaitSettled(ctx, &info, perr, time.Since(r.awaitStarted))
	return nil
}

// Play auto-steps the run every interval. The first tick fires
// immediately.
func (c *Controller) Play(interval time.Duration) error {
	if interval < 0 {
		return fmt.Errorf("play: negative interval %s", interval)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run == nil {
		return api.ErrNotStarted
	}
	c.stopTimerLocked()
	c.status = api.StatusRunning
	c.info.Status = api.StatusRunning
	c.autoPlay = true
	c.interval = interval
	c.playGen++
	c.scheduleLocked(c.run, c.playGen, 0)
	return nil
}

func (c *Controller) scheduleLocked(r *activeRun, gen uint64, d time.Duration) {
	c.timer = time.AfterFunc(d, func() { c.tick(r, gen) })
}

func (c *Controller) playingLocked(r *activeRun, gen uint64) bool {
	return c.autoPlay && c.status == api.StatusRunning && c.run == r && c.playGen == gen
}

func (c *Controller) tick(r *activeRun, gen uint64) {
	c.mu.Lock()
	if !c.playingLocked(r, gen) {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	res, err := c.Step(r.ctx)
	if err != nil || res.Done {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playingLocked(r, gen) {
		return
	}
	c.scheduleLocked(r, gen, c.interval)
}

// Pause cancels auto-play. A running run becomes paused.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.autoPlay = false
	c.playGen++
	if c.status == api.StatusRunning {
		c.status = api.StatusPaused
		c.info.Status = api.StatusPaused
	}
}

// Stop abandons the current run, including one waiting on an external
// result, and returns the controller to idle. It is idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	r := c.run
	c.stopTimerLocked()
	c.autoPlay = false
	c.playGen++
	c.run = nil
	c.status = api.StatusIdle
	c.clearHighlightLocked()
	var info api.RunInfo
	if r != nil {
		c.info.Status = api.StatusIdle
		info = c.info
	}
	c.mu.Unlock()

	if r == nil {
		return
	}
	c.release(r)
	r.root.ResetScopeState()
	c.observer.OnRunStopped(r.ctx, &info)
}

// release detaches from the executor and discards the routine.
func (c *Controller) release(r *activeRun) {
	r.cancel()
	r.root.SetScopeObserver(nil)

	r.seq.Lock()
	defer r.seq.Unlock()
	if !r.halted {
		r.halted = true
		r.stop()
	}
}

func (c *Controller) finish(ctx context.Context, r *activeRun) {
	info, ok := c.detach(r, api.StatusFinished, nil)
	if !ok {
		return
	}
	c.release(r)
	c.observer.OnRunFinished(ctx, &info)
}

func (c *Controller) fail(ctx context.Context, r *activeRun, err error) {
	info, ok := c.detach(r, api.StatusFailed, err)
	if !ok {
		return
	}
	c.release(r)
	r.root.ResetScopeState()
	c.observer.OnRunFailed(ctx, &info, err)
}

func (c *Controller) detach(r *activeRun, status api.Status, err error) (api.RunInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != r {
		return api.RunInfo{}, false
	}
	c.stopTimerLocked()
	c.autoPlay = false
	c.playGen++
	c.run = nil
	c.status = status
	c.err = err
	c.clearHighlightLocked()
	c.info.Status = status
	c.info.Err = err
	return c.info, true
}

func (c *Controller) attached(r *activeRun) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run == r
}

func (c *Controller) onScope(r *activeRun, snap api.Snapshot) {
	c.mu.Lock()
	if c.run != r {
		c.mu.Unlock()
		return
	}
	c.snapshot = snap
	info := c.info
	c.mu.Unlock()
	c.observer.OnScopeChange(r.ctx, &info, snap)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) clearHighlightLocked() {
	if c.highlight != nil {
		c.highlight.SetHighlighted(false)
		c.highlight = nil
	}
}

// Status returns the current state.
func (c *Controller) Status() api.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Highlighted returns the widget of the last step checkpoint, if any.
func (c *Controller) Highlighted() api.Widget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highlight
}

// Waiting reports whether the run is suspended on an external result.
func (c *Controller) Waiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run != nil && c.run.waiting
}

// AutoPlay reports whether auto-play is enabled.
func (c *Controller) AutoPlay() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoPlay
}

// Snapshot returns the last execution stack pushed by the executor.
// It is kept after the run ends so the final scope stays inspectable.
func (c *Controller) Snapshot() api.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Err returns the error that failed the last run.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Run describes the current or most recent run.
func (c *Controller) Run() api.RunInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// ActiveLineKeys collects the code preview lines to emphasise: the
// highlighted widget and the running member of every body in the tree,
// whether or not its parent still marks it as executing.
func (c *Controller) ActiveLineKeys() []string {
	c.mu.Lock()
	h := c.highlight
	var root *Executor
	if c.run != nil {
		root = c.run.root
	}
	c.mu.Unlock()

	var keys []string
	add := func(w api.Widget) {
		for _, k := range w.LineKeys() {
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}
	if h != nil {
		add(h)
	}
	if root != nil {
		collectLineKeys(root, add)
	}
	return keys
}

func collectLineKeys(body api.Body, add func(api.Widget)) {
	if w := body.ActiveWidget(); w != nil {
		add(w)
	}
	for _, w := range body.Widgets() {
		for _, nested := range w.NestedExecutors() {
			collectLineKeys(nested, add)
		}
	}
}
