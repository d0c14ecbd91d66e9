package mission

import "testing"

func TestTransition(t *testing.T) {
	cases := []struct {
		phase Phase
		event Event
		want  Phase
	}{
		{PhaseStarting, EventPlanStarted, PhasePatrolMonitoring},
		{PhasePatrolMonitoring, EventPlanStarted, PhaseReturnMonitoring},
		{PhaseReturnMonitoring, EventPlanStarted, PhaseReturnMonitoring},
		{PhaseStarting, EventPlanMissing, PhaseStarting},
		{PhasePatrolMonitoring, EventPlanMissing, PhasePatrolMonitoring},
		{PhasePatrolMonitoring, EventExecutionFailed, PhasePatrolMonitoring},
		{PhaseReturnMonitoring, EventExecutionFailed, PhaseReturnMonitoring},
		{PhasePatrolMonitoring, EventSelectorInvalid, PhasePatrolMonitoring},
	}
	for _, tc := range cases {
		if got := Transition(tc.phase, tc.event); got != tc.want {
			t.Errorf("Transition(%v, %v) = %v, want %v", tc.phase, tc.event, got, tc.want)
		}
	}
}

func TestPhaseOrdinalsAreStable(t *testing.T) {
	want := map[Phase]int64{PhaseStarting: 0, PhasePatrolMonitoring: 1, PhaseReturnMonitoring: 2}
	for phase, ordinal := range want {
		if got := phase.Ordinal(); got != ordinal {
			t.Errorf("%v.Ordinal() = %d, want %d", phase, got, ordinal)
		}
	}
	if got := Phase("bogus").Ordinal(); got != -1 {
		t.Errorf("unknown ordinal = %d, want -1", got)
	}
}
