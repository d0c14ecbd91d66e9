// SPDX-License-Identifier: Apache-2.0
// Mission metrics for production monitoring of the patrol core.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/roverops/sentinel/pkg/errors"
)

// MissionMetrics tracks planning, phase, and navigation health.
type MissionMetrics struct {
	// planRequests counts plan requests by outcome (found, not_found, error).
	planRequests metric.Int64Counter

	// replans counts replan attempts triggered by failed executions.
	replans metric.Int64Counter

	// phaseGauge tracks the active orchestrator phase
	// (0=starting, 1=patrol_monitoring, 2=return_monitoring).
	phaseGauge metric.Int64Gauge

	// navProgress tracks the current navigation completion fraction.
	navProgress metric.Float64Gauge

	// errorCounter counts mission errors by code and component.
	errorCounter metric.Int64Counter
}

// NewMissionMetrics creates mission metrics on the global meter.
func NewMissionMetrics() (*MissionMetrics, error) {
	meter := otel.Meter("sentinel/mission")

	planRequests, err := meter.Int64Counter(
		"sentinel.plan.requests",
		metric.WithDescription("Plan requests by outcome"),
	)
	if err != nil {
		return nil, err
	}

	replans, err := meter.Int64Counter(
		"sentinel.plan.replans",
		metric.WithDescription("Replan attempts after failed executions"),
	)
	if err != nil {
		return nil, err
	}

	phaseGauge, err := meter.Int64Gauge(
		"sentinel.mission.phase",
		metric.WithDescription("Active orchestrator phase (0=starting, 1=patrol, 2=return)"),
	)
	if err != nil {
		return nil, err
	}

	navProgress, err := meter.Float64Gauge(
		"sentinel.nav.progress",
		metric.WithDescription("Navigation goal completion fraction"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"sentinel.errors.total",
		metric.WithDescription("Mission errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	return &MissionMetrics{
		planRequests: planRequests,
		replans:      replans,
		phaseGauge:   phaseGauge,
		navProgress:  navProgress,
		errorCounter: errorCounter,
	}, nil
}

// RecordPlanRequest counts one plan request with its outcome.
func (m *MissionMetrics) RecordPlanRequest(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.planRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordReplan counts one replan attempt for the given phase.
func (m *MissionMetrics) RecordReplan(ctx context.Context, phase string) {
	if m == nil {
		return
	}
	m.replans.Add(ctx, 1,
		metric.WithAttributes(attribute.String("phase", phase)),
	)
}

// RecordPhase records the active orchestrator phase.
func (m *MissionMetrics) RecordPhase(ctx context.Context, ordinal int64, name string) {
	if m == nil {
		return
	}
	m.phaseGauge.Record(ctx, ordinal,
		metric.WithAttributes(attribute.String("phase", name)),
	)
}

// RecordNavProgress records the completion fraction of the active goal.
func (m *MissionMetrics) RecordNavProgress(ctx context.Context, waypoint string, completion float64) {
	if m == nil {
		return
	}
	m.navProgress.Record(ctx, completion,
		metric.WithAttributes(attribute.String("waypoint", waypoint)),
	)
}

// RecordError counts one mission error by code and component. The fatal
// attribute gives operators visibility into conditions past their retry
// budget even though the tick loop keeps running.
func (m *MissionMetrics) RecordError(ctx context.Context, err error, component string) {
	if m == nil || err == nil {
		return
	}
	me := errors.AsMissionError(err)
	m.errorCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error.code", string(me.Code)),
			attribute.String("component", component),
			attribute.Bool("fatal", !me.Recoverable),
		),
	)
}
