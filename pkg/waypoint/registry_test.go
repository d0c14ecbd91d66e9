package waypoint

import (
	"testing"

	"github.com/roverops/sentinel/pkg/errors"
	"github.com/roverops/sentinel/pkg/geo"
)

func TestLookup(t *testing.T) {
	reg, err := NewRegistry(map[string]geo.Pose{
		"wp1": {Position: geo.Point{X: 6, Y: 2}},
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	pose, err := reg.Lookup("wp1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if pose.Position.X != 6 || pose.Position.Y != 2 {
		t.Fatalf("unexpected pose: %+v", pose)
	}
}

func TestLookupUnknownFailsLoudly(t *testing.T) {
	reg, err := NewRegistry(map[string]geo.Pose{"wp1": {}})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	pose, err := reg.Lookup("wp99")
	if err == nil {
		t.Fatalf("expected error for unknown waypoint, got pose %+v", pose)
	}
	if errors.CodeOf(err) != errors.CodeWaypointNotFound {
		t.Fatalf("unexpected error code: %v", errors.CodeOf(err))
	}
}

func TestEmptyTableRejected(t *testing.T) {
	if _, err := NewRegistry(nil); err == nil {
		t.Fatalf("expected error for empty table")
	}
}

func TestIDsSortedAndComplete(t *testing.T) {
	reg, err := NewRegistry(map[string]geo.Pose{
		"wp2":        {},
		"wp1":        {},
		"wp_control": {},
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	ids := reg.IDs()
	want := []string{"wp1", "wp2", "wp_control"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}
