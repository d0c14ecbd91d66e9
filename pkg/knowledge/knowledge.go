// Package knowledge defines the symbolic world-state contracts the mission
// core consumes: a domain source and a problem store of instances,
// predicates, and the active goal. The representations are opaque text; the
// orchestrator only composes and removes facts, it never interprets them.
package knowledge

import (
	"context"
	"fmt"
	"strings"
)

// DomainSnapshot is an opaque rendering of the planning domain.
type DomainSnapshot string

// ProblemSnapshot is an opaque rendering of the current problem state.
type ProblemSnapshot string

// Instance is a typed object in the problem, e.g. a robot or a waypoint.
type Instance struct {
	Name string
	Type string
}

// Predicate is a grounded fact, e.g. "(patrolled wp2)".
type Predicate string

// Goal is a logical formula over predicates.
type Goal string

// RobotAt builds the fact that a robot is at a waypoint.
func RobotAt(robot, wp string) Predicate {
	return Predicate(fmt.Sprintf("(robot_at %s %s)", robot, wp))
}

// Patrolled builds the fact that a waypoint has been patrolled.
func Patrolled(wp string) Predicate {
	return Predicate(fmt.Sprintf("(patrolled %s)", wp))
}

// Connected builds the fact that two waypoints are traversable.
func Connected(from, to string) Predicate {
	return Predicate(fmt.Sprintf("(connected %s %s)", from, to))
}

// And conjoins predicates into a goal formula.
func And(preds ...Predicate) Goal {
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = string(p)
	}
	return Goal("(and " + strings.Join(parts, " ") + ")")
}

// DomainSource provides the planning domain.
type DomainSource interface {
	Domain(ctx context.Context) (DomainSnapshot, error)
}

// ProblemStore holds the evolving problem: instances, facts, and the goal.
type ProblemStore interface {
	AddInstance(ctx context.Context, inst Instance) error
	AddPredicate(ctx context.Context, pred Predicate) error
	RemovePredicate(ctx context.Context, pred Predicate) error
	SetGoal(ctx context.Context, goal Goal) error
	Goal(ctx context.Context) (Goal, error)
	Problem(ctx context.Context) (ProblemSnapshot, error)
}

// StaticDomain is a DomainSource backed by a fixed domain text.
type StaticDomain string

// Domain implements DomainSource.
func (d StaticDomain) Domain(_ context.Context) (DomainSnapshot, error) {
	return DomainSnapshot(d), nil
}
