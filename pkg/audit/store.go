// Package audit records mission events so operators can reconstruct what the
// orchestrator decided and why.
package audit

import (
	"context"
	"sync"
	"time"
)

// Event kinds recorded by the mission core.
const (
	KindPlanRequest     = "plan.request"
	KindExecutionResult = "execution.result"
	KindPhaseTransition = "phase.transition"
	KindNavGoal         = "nav.goal"
)

// Event is a single mission audit record.
type Event struct {
	RunID   string
	Kind    string
	Subject string
	Status  string
	Detail  string
	At      time.Time
}

// Store persists mission audit events.
type Store interface {
	Record(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// Filter limits audit event queries.
type Filter struct {
	RunID  string
	Kind   string
	Status string
	Limit  int
}

// MemoryStore keeps audit events in memory.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryStore returns an in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends an audit event.
func (s *MemoryStore) Record(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, normalize(event))
	return nil
}

// List returns filtered audit events in recording order.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if filter.RunID != "" && ev.RunID != filter.RunID {
			continue
		}
		if filter.Kind != "" && ev.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && ev.Status != filter.Status {
			continue
		}
		out = append(out, ev)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func normalize(event Event) Event {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	event.At = event.At.UTC()
	return event
}
