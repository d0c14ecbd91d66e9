package sim

import (
	"context"
	"testing"
	"time"

	"github.com/roverops/sentinel/pkg/errors"
	"github.com/roverops/sentinel/pkg/geo"
	"github.com/roverops/sentinel/pkg/nav"
	"github.com/roverops/sentinel/pkg/plan"
	"github.com/roverops/sentinel/pkg/waypoint"
)

func TestNavServiceDrivesPoseToTarget(t *testing.T) {
	poses := &nav.PoseCell{}
	poses.Update(geo.Pose{Position: geo.Point{X: 0, Y: 0}})
	svc := NewNavService(poses, 1.0, time.Millisecond)

	target := geo.Pose{Position: geo.Point{X: 3, Y: 4}, Orientation: geo.Identity()}
	goal, err := svc.SendGoal(context.Background(), target)
	if err != nil {
		t.Fatalf("SendGoal: %v", err)
	}

	select {
	case err := <-goal.Done():
		if err != nil {
			t.Fatalf("goal ended with %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for arrival")
	}

	final, ok := poses.Latest()
	if !ok || geo.Distance(final, target) > 1e-9 {
		t.Fatalf("final pose = %+v, want target", final)
	}
}

func TestNavServiceFeedbackDecreases(t *testing.T) {
	poses := &nav.PoseCell{}
	poses.Update(geo.Pose{Position: geo.Point{X: 0, Y: 0}})
	svc := NewNavService(poses, 2.0, time.Millisecond)

	goal, err := svc.SendGoal(context.Background(), geo.Pose{Position: geo.Point{X: 10, Y: 0}})
	if err != nil {
		t.Fatalf("SendGoal: %v", err)
	}

	last := 1e18
	deadline := time.After(2 * time.Second)
	for {
		select {
		case remaining, open := <-goal.Feedback():
			if !open {
				return
			}
			if remaining > last {
				t.Fatalf("remaining distance rose from %v to %v", last, remaining)
			}
			last = remaining
		case <-deadline:
			t.Fatal("timed out consuming feedback")
		}
	}
}

// Full leg through the adapter: the simulated service moves the robot, the
// adapter reports completion through the binding, and the executor-side
// handler returns once the adapter declares arrival.
func TestMoveBindingCompletesAgainstSimService(t *testing.T) {
	poses := &nav.PoseCell{}
	poses.Update(geo.Pose{Position: geo.Point{X: 2, Y: 2}})
	svc := NewNavService(poses, 0.5, time.Millisecond)

	reg, err := waypoint.NewRegistry(map[string]geo.Pose{
		"wp1": {Position: geo.Point{X: 6, Y: 2}, Orientation: geo.Identity()},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	binding := NewMoveBinding()
	adapter := nav.NewAdapter(nav.Config{
		ArrivalThreshold: 0.3,
		ReadyTimeout:     50 * time.Millisecond,
		ReadyAttempts:    5,
	}, nav.Deps{Registry: reg, Service: svc, Poses: poses, Sink: binding})
	binding.Bind(adapter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go adapter.Run(ctx, time.Millisecond)

	e := NewExecutor()
	e.Handle("move", binding.Handler())
	p := plan.NewPlan([]plan.Action{{Name: "move", Args: []string{"r2d2", "wp_control", "wp1"}}})
	if ok, err := e.Start(ctx, p); err != nil || !ok {
		t.Fatalf("Start = (%v, %v)", ok, err)
	}
	if result := waitResult(t, e); !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
}

func TestNavServiceScriptedReadiness(t *testing.T) {
	poses := &nav.PoseCell{}
	poses.Update(geo.Pose{Position: geo.Point{X: 2, Y: 2}})
	svc := NewNavService(poses, 1.0, time.Millisecond)
	svc.SetReadyError(errors.New(errors.CodeNavUnavailable, "bringing up stack", nil).WithRecoverable(true))

	reg, err := waypoint.NewRegistry(map[string]geo.Pose{
		"wp1": {Position: geo.Point{X: 6, Y: 2}, Orientation: geo.Identity()},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	sink := NewMoveBinding()
	adapter := nav.NewAdapter(nav.Config{
		ArrivalThreshold: 0.3,
		ReadyTimeout:     50 * time.Millisecond,
		ReadyAttempts:    10,
	}, nav.Deps{Registry: reg, Service: svc, Poses: poses, Sink: sink})
	sink.Bind(adapter)

	ctx := context.Background()
	if err := adapter.RequestGoal("wp1"); err != nil {
		t.Fatalf("RequestGoal: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := adapter.Tick(ctx); err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
	}
	if adapter.State() != nav.StateAwaitingServer {
		t.Fatalf("state = %v, want awaiting_server while not serving", adapter.State())
	}

	svc.SetReadyError(nil)
	if err := adapter.Tick(ctx); err != nil {
		t.Fatalf("Tick after recovery: %v", err)
	}
	if adapter.State() != nav.StateNavigating {
		t.Fatalf("state = %v, want navigating once serving", adapter.State())
	}
}
