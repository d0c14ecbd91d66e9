package telemetry

import (
	"context"
	"testing"

	"github.com/roverops/sentinel/pkg/errors"
)

func TestMissionMetricsRecord(t *testing.T) {
	m, err := NewMissionMetrics()
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	ctx := context.Background()
	m.RecordPlanRequest(ctx, "found")
	m.RecordReplan(ctx, "patrol_monitoring")
	m.RecordPhase(ctx, 1, "patrol_monitoring")
	m.RecordNavProgress(ctx, "wp2", 0.7)
	m.RecordError(ctx, errors.New(errors.CodePlanNotFound, "no plan", nil).WithRecoverable(true), "pipeline")
}

func TestMissionMetricsNilReceiver(t *testing.T) {
	var m *MissionMetrics
	ctx := context.Background()
	// Recording on a nil receiver must be a safe no-op.
	m.RecordPlanRequest(ctx, "found")
	m.RecordError(ctx, errors.New(errors.CodeInternal, "boom", nil), "test")
}
