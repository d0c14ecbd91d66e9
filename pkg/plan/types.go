// Package plan defines the plan and execution contracts between the mission
// core and its external planner and executor, plus the request pipeline that
// turns world-state snapshots into plans.
package plan

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roverops/sentinel/pkg/knowledge"
)

// ActionState is the lifecycle state of a single plan action.
type ActionState string

const (
	ActionPending   ActionState = "pending"
	ActionExecuting ActionState = "executing"
	ActionSucceeded ActionState = "succeeded"
	ActionFailed    ActionState = "failed"
)

// Action is one grounded step of a plan.
type Action struct {
	Name     string
	Args     []string
	Duration time.Duration
}

// String renders the grounded action, e.g. "move r2d2 wp1 wp2".
func (a Action) String() string {
	if len(a.Args) == 0 {
		return a.Name
	}
	return a.Name + " " + strings.Join(a.Args, " ")
}

// Plan is an ordered sequence of grounded actions. It is opaque to the
// orchestrator: produced by the planner, consumed by the executor.
type Plan struct {
	ID      string
	Actions []Action
}

// NewPlan creates a plan with a generated id.
func NewPlan(actions []Action) *Plan {
	return &Plan{ID: uuid.NewString(), Actions: actions}
}

// ActionStatus is per-action execution feedback.
type ActionStatus struct {
	Action     string
	State      ActionState
	Completion float64
	Message    string
}

// Result is the terminal outcome of a plan execution.
type Result struct {
	Success bool
	Actions []ActionStatus
}

// FailedActions returns the statuses of actions that ended in failure.
func (r *Result) FailedActions() []ActionStatus {
	var failed []ActionStatus
	for _, status := range r.Actions {
		if status.State == ActionFailed {
			failed = append(failed, status)
		}
	}
	return failed
}

// Planner computes a plan from domain and problem snapshots. Infeasibility
// is reported as a nil plan with a nil error; a partial plan is never
// returned.
type Planner interface {
	Plan(ctx context.Context, domain knowledge.DomainSnapshot, problem knowledge.ProblemSnapshot) (*Plan, error)
}

// Executor runs a plan and reports progress. All methods are non-blocking
// status queries; at most one plan is in flight at a time.
type Executor interface {
	// Start begins executing a plan. A false return means the executor
	// rejected the plan without starting it.
	Start(ctx context.Context, p *Plan) (bool, error)

	// Executing reports whether a plan is still running.
	Executing(ctx context.Context) bool

	// Feedback returns the latest per-action statuses.
	Feedback(ctx context.Context) []ActionStatus

	// Result returns the terminal outcome once execution has stopped.
	Result(ctx context.Context) (*Result, bool)
}
