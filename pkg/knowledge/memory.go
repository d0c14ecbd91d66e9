package knowledge

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryProblemStore keeps the problem in memory. It backs tests and the
// simulated mission; a deployment would swap in a client for the real
// problem service behind the same interface.
type MemoryProblemStore struct {
	mu         sync.Mutex
	instances  []Instance
	predicates map[Predicate]bool
	goal       Goal
}

// NewMemoryProblemStore returns an empty in-memory problem store.
func NewMemoryProblemStore() *MemoryProblemStore {
	return &MemoryProblemStore{predicates: make(map[Predicate]bool)}
}

// AddInstance registers an object. Duplicate names are ignored.
func (s *MemoryProblemStore) AddInstance(_ context.Context, inst Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.instances {
		if existing.Name == inst.Name {
			return nil
		}
	}
	s.instances = append(s.instances, inst)
	return nil
}

// AddPredicate asserts a fact.
func (s *MemoryProblemStore) AddPredicate(_ context.Context, pred Predicate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predicates[pred] = true
	return nil
}

// RemovePredicate retracts a fact. Removing an absent fact is a no-op so
// cleanup passes stay idempotent across retried ticks.
func (s *MemoryProblemStore) RemovePredicate(_ context.Context, pred Predicate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.predicates, pred)
	return nil
}

// HasPredicate reports whether a fact is currently asserted.
func (s *MemoryProblemStore) HasPredicate(pred Predicate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.predicates[pred]
}

// SetGoal replaces the active goal.
func (s *MemoryProblemStore) SetGoal(_ context.Context, goal Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goal = goal
	return nil
}

// Goal returns the active goal.
func (s *MemoryProblemStore) Goal(_ context.Context) (Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goal, nil
}

// Problem renders the current state as an opaque snapshot. The rendering is
// deterministic so tests can compare snapshots across replans.
func (s *MemoryProblemStore) Problem(_ context.Context) (ProblemSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString("(problem\n  (:objects")
	for _, inst := range s.instances {
		b.WriteString(" " + inst.Name + " - " + inst.Type)
	}
	b.WriteString(")\n  (:init")
	preds := make([]string, 0, len(s.predicates))
	for pred := range s.predicates {
		preds = append(preds, string(pred))
	}
	sort.Strings(preds)
	for _, pred := range preds {
		b.WriteString(" " + pred)
	}
	b.WriteString(")\n  (:goal " + string(s.goal) + ")\n)")
	return ProblemSnapshot(b.String()), nil
}
