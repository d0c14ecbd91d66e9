package plan

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roverops/sentinel/pkg/audit"
	"github.com/roverops/sentinel/pkg/errors"
	"github.com/roverops/sentinel/pkg/knowledge"
)

// RequestPipeline asks the planner for a plan against fresh domain and
// problem snapshots. Snapshots are pulled on every request, never cached:
// world state may have changed since the last attempt.
type RequestPipeline struct {
	domain  knowledge.DomainSource
	problem knowledge.ProblemStore
	planner Planner
	store   audit.Store
	runID   string
	tracer  trace.Tracer
}

// NewRequestPipeline wires a pipeline. The audit store may be nil.
func NewRequestPipeline(domain knowledge.DomainSource, problem knowledge.ProblemStore, planner Planner, store audit.Store, runID string) *RequestPipeline {
	return &RequestPipeline{
		domain:  domain,
		problem: problem,
		planner: planner,
		store:   store,
		runID:   runID,
		tracer:  otel.Tracer("sentinel/plan"),
	}
}

// Request pulls fresh snapshots and asks the planner for a plan. A planner
// that finds no plan yields a recoverable CodePlanNotFound; the caller is
// expected to retry on a later tick, not abort the mission.
func (p *RequestPipeline) Request(ctx context.Context) (*Plan, error) {
	ctx, span := p.tracer.Start(ctx, "Plan.Request")
	defer span.End()

	goal, err := p.problem.Goal(ctx)
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "reading goal", err)
	}
	span.SetAttributes(attribute.String("goal", string(goal)))

	domain, err := p.domain.Domain(ctx)
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "reading domain", err)
	}
	problem, err := p.problem.Problem(ctx)
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "reading problem", err)
	}

	result, err := p.planner.Plan(ctx, domain, problem)
	if err != nil {
		p.record(ctx, goal, "error", err.Error())
		return nil, errors.New(errors.CodeInternal, "planner call failed", err)
	}
	if result == nil {
		p.record(ctx, goal, "not_found", "")
		return nil, errors.New(errors.CodePlanNotFound, "no plan reaches goal", nil).
			WithContext("goal", string(goal)).
			WithRecoverable(true)
	}

	span.SetAttributes(attribute.Int("plan.actions", len(result.Actions)))
	p.record(ctx, goal, "found", result.ID)
	return result, nil
}

func (p *RequestPipeline) record(ctx context.Context, goal knowledge.Goal, status, detail string) {
	if p.store == nil {
		return
	}
	// Audit failures must not fail the mission tick.
	_ = p.store.Record(ctx, audit.Event{
		RunID:   p.runID,
		Kind:    audit.KindPlanRequest,
		Subject: string(goal),
		Status:  status,
		Detail:  detail,
	})
}
