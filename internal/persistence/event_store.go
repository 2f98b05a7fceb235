package persistence

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/nnorbert/codedam/pkg/api"
)

// ErrRunNotFound is returned when a journal holds no events for a run.
var ErrRunNotFound = errors.New("run not found")

// EventStore is an append-only history store for run events.
type EventStore interface {
	AppendEvent(ctx context.Context, ev api.RunEvent) error
	ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error)
	ListRuns(ctx context.Context) ([]RunSummary, error)
}

// RunSummary is one row of the journal's run index.
type RunSummary struct {
	RunID     string
	Program   string
	StartedAt time.Time
	Events    int
	LastType  api.EventType
}

// NoopEventStore discards all events.
type NoopEventStore struct{}

func (NoopEventStore) AppendEvent(ctx context.Context, ev api.RunEvent) error { return nil }
func (NoopEventStore) ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	return nil, nil
}
func (NoopEventStore) ListRuns(ctx context.Context) ([]RunSummary, error) { return nil, nil }

// InMemoryEventStore keeps events in process memory, grouped by run.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[string][]api.RunEvent
	order  []string
}

var _ EventStore = (*InMemoryEventStore)(nil)

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		events: make(map[string][]api.RunEvent),
	}
}

func (s *InMemoryEventStore) AppendEvent(ctx context.Context, ev api.RunEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if ev.Snapshot != nil {
		snap := cloneSnapshot(*ev.Snapshot)
		ev.Snapshot = &snap
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[ev.RunID]; !ok {
		s.order = append(s.order, ev.RunID)
	}
	s.events[ev.RunID] = append(s.events[ev.RunID], ev)
	return nil
}

func (s *InMemoryEventStore) ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs, ok := s.events[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return slices.Clone(evs), nil
}

func (s *InMemoryEventStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunSummary, 0, len(s.order))
	for _, id := range s.order {
		evs := s.events[id]
		first, last := evs[0], evs[len(evs)-1]
		out = append(out, RunSummary{
			RunID:     id,
			Program:   first.Program,
			StartedAt: first.At,
			Events:    len(evs),
			LastType:  last.Type,
		})
	}
	return out, nil
}

// cloneSnapshot copies the frame and variable slices so later writes by
// the caller cannot change recorded history.
func cloneSnapshot(s api.Snapshot) api.Snapshot {
	out := api.Snapshot{Frames: make([]api.ScopeFrame, len(s.Frames))}
	for i, f := range s.Frames {
		f.Variables = slices.Clone(f.Variables)
		out.Frames[i] = f
	}
	return out
}
