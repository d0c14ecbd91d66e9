package sim

import (
	"context"
	"testing"
	"time"

	"github.com/roverops/sentinel/pkg/errors"
	"github.com/roverops/sentinel/pkg/plan"
)

func TestScriptedPlannerReplaysQueue(t *testing.T) {
	first := plan.NewPlan([]plan.Action{{Name: "patrol", Args: []string{"wp1"}}})
	p := NewScriptedPlanner(
		PlannedResponse{Plan: first},
		PlannedResponse{}, // infeasible
	)
	ctx := context.Background()

	got, err := p.Plan(ctx, "", "")
	if err != nil || got != first {
		t.Fatalf("first response = (%v, %v), want scripted plan", got, err)
	}
	got, err = p.Plan(ctx, "", "")
	if err != nil || got != nil {
		t.Fatalf("second response = (%v, %v), want infeasible", got, err)
	}
	// Exhausted queue keeps reporting infeasibility.
	got, err = p.Plan(ctx, "", "")
	if err != nil || got != nil {
		t.Fatalf("exhausted response = (%v, %v), want infeasible", got, err)
	}
	if p.Calls() != 3 {
		t.Fatalf("calls = %d, want 3", p.Calls())
	}
}

func waitResult(t *testing.T, e *Executor) *plan.Result {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if result, ok := e.Result(context.Background()); ok {
			return result
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for execution result")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestExecutorRunsActionsInOrder(t *testing.T) {
	e := NewExecutor()
	var order []string
	done := make(chan struct{})
	e.Handle("patrol", func(_ context.Context, action plan.Action, report func(float64, string)) error {
		report(0.5, "scanning")
		order = append(order, action.Args[0])
		if len(order) == 2 {
			close(done)
		}
		return nil
	})

	p := plan.NewPlan([]plan.Action{
		{Name: "patrol", Args: []string{"wp1"}},
		{Name: "patrol", Args: []string{"wp2"}},
	})
	ok, err := e.Start(context.Background(), p)
	if err != nil || !ok {
		t.Fatalf("Start = (%v, %v), want accepted", ok, err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for actions")
	}
	result := waitResult(t, e)
	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if order[0] != "wp1" || order[1] != "wp2" {
		t.Fatalf("order = %v, want [wp1 wp2]", order)
	}
	for _, status := range result.Actions {
		if status.State != plan.ActionSucceeded {
			t.Fatalf("status %+v, want succeeded", status)
		}
	}
}

func TestExecutorFailureStopsPlan(t *testing.T) {
	e := NewExecutor()
	e.Handle("move", func(_ context.Context, _ plan.Action, _ func(float64, string)) error {
		return errors.New(errors.CodeActionFailed, "wheel stuck", nil)
	})

	p := plan.NewPlan([]plan.Action{
		{Name: "move", Args: []string{"r2d2", "wp1", "wp2"}},
		{Name: "patrol", Args: []string{"wp2"}},
	})
	if ok, err := e.Start(context.Background(), p); err != nil || !ok {
		t.Fatalf("Start = (%v, %v), want accepted", ok, err)
	}

	result := waitResult(t, e)
	if result.Success {
		t.Fatal("result reports success after action failure")
	}
	failed := result.FailedActions()
	if len(failed) != 1 || failed[0].Message != "wheel stuck" {
		t.Fatalf("failed = %+v, want the move failure", failed)
	}
	if result.Actions[1].State != plan.ActionPending {
		t.Fatalf("second action state = %v, want pending", result.Actions[1].State)
	}
}

func TestExecutorRejectsConcurrentPlans(t *testing.T) {
	e := NewExecutor()
	release := make(chan struct{})
	e.Handle("patrol", func(ctx context.Context, _ plan.Action, _ func(float64, string)) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	p := plan.NewPlan([]plan.Action{{Name: "patrol", Args: []string{"wp1"}}})
	if ok, _ := e.Start(context.Background(), p); !ok {
		t.Fatal("first plan rejected")
	}
	if ok, err := e.Start(context.Background(), p); ok || err != nil {
		t.Fatalf("second Start = (%v, %v), want clean rejection", ok, err)
	}
	close(release)
	if result := waitResult(t, e); !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
}

func TestExecutorRejectsEmptyPlan(t *testing.T) {
	e := NewExecutor()
	ok, err := e.Start(context.Background(), &plan.Plan{ID: "empty"})
	if ok {
		t.Fatal("empty plan accepted")
	}
	if errors.CodeOf(err) != errors.CodeExecutionRejected {
		t.Fatalf("code = %v, want EXECUTION_REJECTED", errors.CodeOf(err))
	}
}
