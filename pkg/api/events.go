package api

import "time"

// EventType identifies a run journal event.
type EventType string

const (
	EventRunStarted  EventType = "run.started"
	EventRunFinished EventType = "run.finished"
	EventRunFailed   EventType = "run.failed"
	EventRunStopped  EventType = "run.stopped"

	EventStep         EventType = "step"
	EventAwaitStarted EventType = "await.started"
	EventAwaitSettled EventType = "await.settled"

	EventScopeChanged EventType = "scope.changed"
)

// RunEvent is a minimal append-only history record for debugging a run.
// It is never read back to restore execution.
type RunEvent struct {
	RunID string
	At    time.Time
	Type  EventType

	Program string
	Step    int

	// WidgetID and WidgetTag are set for step events.
	WidgetID  string
	WidgetTag string

	// Small, human-oriented details (error text, durations).
	Detail string

	// Snapshot is set for scope change events.
	Snapshot *Snapshot
}
