// Package mission implements the patrol-then-return orchestrator: a phase
// machine ticked at a fixed cadence that sets symbolic goals, requests
// plans, monitors execution, and replans on failure.
package mission

// Phase is one stage of the patrol-then-return mission. Exactly one phase
// is active at any time.
type Phase string

const (
	// PhaseStarting sets the patrol goal and requests the first plan.
	PhaseStarting Phase = "starting"

	// PhasePatrolMonitoring watches the patrol plan execute.
	PhasePatrolMonitoring Phase = "patrol_monitoring"

	// PhaseReturnMonitoring watches the return plan execute.
	PhaseReturnMonitoring Phase = "return_monitoring"
)

// Ordinal returns a stable numeric encoding for metrics.
func (p Phase) Ordinal() int64 {
	switch p {
	case PhaseStarting:
		return 0
	case PhasePatrolMonitoring:
		return 1
	case PhaseReturnMonitoring:
		return 2
	}
	return -1
}

// Event is a phase-machine input derived from collaborator observations.
type Event string

const (
	// EventPlanStarted fires when the executor accepts a plan for the
	// phase's goal.
	EventPlanStarted Event = "plan_started"

	// EventPlanMissing fires when no plan was found or the executor
	// rejected the plan. The phase holds; the orchestrator retries.
	EventPlanMissing Event = "plan_missing"

	// EventExecutionFailed fires when a running plan terminates
	// unsuccessfully. Replanning never changes phase by itself.
	EventExecutionFailed Event = "execution_failed"

	// EventSelectorInvalid fires when patrol completed but the mission
	// selector is unset or out of range. The mission stalls in place.
	EventSelectorInvalid Event = "selector_invalid"
)

// Transition is the pure phase-transition function. Only a successfully
// started plan advances the mission; every other event leaves the phase
// unchanged.
func Transition(p Phase, ev Event) Phase {
	if ev != EventPlanStarted {
		return p
	}
	switch p {
	case PhaseStarting:
		return PhasePatrolMonitoring
	case PhasePatrolMonitoring:
		return PhaseReturnMonitoring
	}
	return p
}
