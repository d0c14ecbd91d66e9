package knowledge

import (
	"context"
	"strings"
	"testing"
)

func TestPredicateBuilders(t *testing.T) {
	if got := RobotAt("r2d2", "wp4"); got != "(robot_at r2d2 wp4)" {
		t.Fatalf("unexpected predicate: %s", got)
	}
	if got := Patrolled("wp1"); got != "(patrolled wp1)" {
		t.Fatalf("unexpected predicate: %s", got)
	}
	goal := And(RobotAt("r2d2", "wp4"), Patrolled("wp1"))
	if got := string(goal); got != "(and (robot_at r2d2 wp4) (patrolled wp1))" {
		t.Fatalf("unexpected goal: %s", got)
	}
}

func TestMemoryProblemStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProblemStore()

	if err := store.AddInstance(ctx, Instance{Name: "r2d2", Type: "robot"}); err != nil {
		t.Fatalf("add instance: %v", err)
	}
	// Duplicate instance is ignored.
	if err := store.AddInstance(ctx, Instance{Name: "r2d2", Type: "robot"}); err != nil {
		t.Fatalf("add duplicate: %v", err)
	}

	pred := Patrolled("wp1")
	if err := store.AddPredicate(ctx, pred); err != nil {
		t.Fatalf("add predicate: %v", err)
	}
	if !store.HasPredicate(pred) {
		t.Fatalf("predicate should be asserted")
	}
	if err := store.RemovePredicate(ctx, pred); err != nil {
		t.Fatalf("remove predicate: %v", err)
	}
	if store.HasPredicate(pred) {
		t.Fatalf("predicate should be retracted")
	}
	// Removing an absent fact stays a no-op.
	if err := store.RemovePredicate(ctx, pred); err != nil {
		t.Fatalf("remove absent predicate: %v", err)
	}

	goal := And(RobotAt("r2d2", "wp2"))
	if err := store.SetGoal(ctx, goal); err != nil {
		t.Fatalf("set goal: %v", err)
	}
	got, err := store.Goal(ctx)
	if err != nil || got != goal {
		t.Fatalf("goal roundtrip: %v %v", got, err)
	}
}

func TestProblemSnapshotReflectsState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProblemStore()
	store.AddInstance(ctx, Instance{Name: "wp1", Type: "waypoint"})
	store.AddPredicate(ctx, Patrolled("wp1"))
	store.SetGoal(ctx, And(RobotAt("r2d2", "wp1")))

	before, err := store.Problem(ctx)
	if err != nil {
		t.Fatalf("problem: %v", err)
	}
	if !strings.Contains(string(before), "(patrolled wp1)") {
		t.Fatalf("snapshot missing predicate: %s", before)
	}

	store.RemovePredicate(ctx, Patrolled("wp1"))
	after, err := store.Problem(ctx)
	if err != nil {
		t.Fatalf("problem: %v", err)
	}
	if strings.Contains(string(after), "(patrolled wp1)") {
		t.Fatalf("snapshot still has retracted predicate: %s", after)
	}
	if before == after {
		t.Fatalf("snapshots must differ when state changed")
	}
}
