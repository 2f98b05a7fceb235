package api

import "time"

// Status is the state of an execution controller.
type Status string

const (
	StatusIdle     Status = "IDLE"
	StatusRunning  Status = "RUNNING"
	StatusPaused   Status = "PAUSED"
	StatusFinished Status = "FINISHED"
	StatusFailed   Status = "FAILED"
)

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

// RunInfo describes one run of a program.
type RunInfo struct {
	ID      string
	Program string
	Status  Status

	// Steps counts step checkpoints consumed so far.
	Steps int

	// Awaits counts await checkpoints waited on so far.
	Awaits int

	StartedAt time.Time
	Err       error
}

// StepResult is returned by a single step request.
type StepResult struct {
	// Widget is the highlighted widget after the request, nil if none.
	Widget Widget

	// Done is true once the sequence is exhausted and the run finished.
	Done bool

	// Waiting is true when the request was ignored because the run is
	// waiting on an external result.
	Waiting bool
}
