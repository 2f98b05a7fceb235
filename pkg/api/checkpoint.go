package api

import (
	"context"
	"iter"
)

// CheckpointKind identifies what a checkpoint asks of the driver.
type CheckpointKind int

const (
	// CheckpointStep is a meaningful program step. The driver holds here
	// until it is told to proceed.
	CheckpointStep CheckpointKind = iota + 1

	// CheckpointAwait is a transparent wait on an external asynchronous
	// result. The driver resumes as soon as the result settles and never
	// counts it as a step.
	CheckpointAwait
)

func (k CheckpointKind) String() string {
	switch k {
	case CheckpointStep:
		return "step"
	case CheckpointAwait:
		return "await"
	default:
		return "unknown"
	}
}

// Checkpoint is a single suspension point produced by a Routine.
type Checkpoint struct {
	Kind CheckpointKind

	// Widget is the widget about to perform an observable effect.
	// Set for CheckpointStep only.
	Widget Widget

	// Pending is the external result being waited on.
	// Set for CheckpointAwait only.
	Pending *Pending
}

// Routine is the resumable execution sequence of a widget or a body.
//
// A routine that finishes normally simply stops yielding. A routine that
// fails yields one final pair whose error is non-nil.
type Routine = iter.Seq2[Checkpoint, error]

// EmptyRoutine returns a routine that is immediately exhausted.
// Expression widgets use it for Execute.
func EmptyRoutine() Routine {
	return func(yield func(Checkpoint, error) bool) {}
}

// Yielder is handed to routine bodies built with NewRoutine. Once the
// consumer stops pulling, every method returns ErrHalted and the body is
// expected to return that error unchanged.
type Yielder struct {
	yield  func(Checkpoint, error) bool
	halted bool
}

// NewRoutine turns a straight-line body into a Routine. The body suspends
// by calling the Yielder methods; a non-nil error it returns is emitted as
// the final element unless the consumer already stopped.
func NewRoutine(body func(y *Yielder) error) Routine {
	return func(yield func(Checkpoint, error) bool) {
		y := &Yielder{yield: yield}
		err := body(y)
		if err == nil || y.halted {
			return
		}
		yield(Checkpoint{}, err)
	}
}

// Halted reports whether the consumer has stopped pulling.
func (y *Yielder) Halted() bool {
	return y.halted
}

// Step yields a step checkpoint for w.
func (y *Yielder) Step(w Widget) error {
	if y.halted {
		return ErrHalted
	}
	if !y.yield(Checkpoint{Kind: CheckpointStep, Widget: w}, nil) {
		y.halted = true
		return ErrHalted
	}
	return nil
}

// Await starts fn on its own goroutine, yields an await checkpoint for it
// and returns its result once the driver resumes the routine.
func (y *Yielder) Await(ctx context.Context, fn func(ctx context.Context) (Value, error)) (Value, error) {
	if y.halted {
		return nil, ErrHalted
	}
	p := StartPending(ctx, fn)
	if !y.yield(Checkpoint{Kind: CheckpointAwait, Pending: p}, nil) {
		y.halted = true
		return nil, ErrHalted
	}
	return p.Result()
}

// Delegate forwards every checkpoint of r, in order, and returns the error
// r failed with, if any.
func (y *Yielder) Delegate(r Routine) error {
	if y.halted {
		return ErrHalted
	}
	for cp, err := range r {
		if err != nil {
			return err
		}
		if !y.yield(cp, nil) {
			y.halted = true
			return ErrHalted
		}
	}
	return nil
}

// Drain runs r to completion without pausing at step checkpoints.
// Await checkpoints are waited on, honouring ctx.
func Drain(ctx context.Context, r Routine) error {
	for cp, err := range r {
		if err != nil {
			return err
		}
		if cp.Kind != CheckpointAwait {
			continue
		}
		select {
		case <-cp.Pending.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Pending is the handle of an external asynchronous computation.
type Pending struct {
	done  chan struct{}
	value Value
	err   error
}

// StartPending runs fn on a new goroutine and returns its handle.
func StartPending(ctx context.Context, fn func(ctx context.Context) (Value, error)) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.value, p.err = fn(ctx)
	}()
	return p
}

// Resolved returns an already settled Pending.
func Resolved(v Value, err error) *Pending {
	p := &Pending{done: make(chan struct{}), value: v, err: err}
	close(p.done)
	return p
}

// Done is closed once the computation has settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether the computation has finished.
func (p *Pending) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Result blocks until the computation settles and returns its outcome.
func (p *Pending) Result() (Value, error) {
	<-p.done
	return p.value, p.err
}
