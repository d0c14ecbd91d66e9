package mission

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roverops/sentinel/pkg/audit"
	"github.com/roverops/sentinel/pkg/errors"
	"github.com/roverops/sentinel/pkg/knowledge"
	"github.com/roverops/sentinel/pkg/plan"
	"github.com/roverops/sentinel/pkg/signal"
	"github.com/roverops/sentinel/pkg/telemetry"
)

// Config holds the mission parameters for the orchestrator.
type Config struct {
	Robot           string
	ControlWaypoint string

	// PatrolRoute is the ordered patrol waypoints; the last entry is the
	// waypoint the patrol goal requires the robot to end at.
	PatrolRoute []string

	// Connections is the traversability seeded into the problem store.
	Connections [][2]string

	// ReplanAttempts is the consecutive-replan-failure budget before the
	// condition is reported as fatal-class. Zero disables the budget.
	ReplanAttempts int
}

// Deps are the collaborators the orchestrator composes.
type Deps struct {
	Problem  knowledge.ProblemStore
	Pipeline *plan.RequestPipeline
	Executor plan.Executor
	Selector *signal.Selector
	Latch    *signal.Latch
	Audit    audit.Store
	Metrics  *telemetry.MissionMetrics
	Logger   *slog.Logger
	RunID    string
}

// Orchestrator drives the patrol-then-return mission. It is ticked from a
// single goroutine; phase transitions are atomic per tick and only a
// successful execution advances the mission.
type Orchestrator struct {
	cfg      Config
	problem  knowledge.ProblemStore
	pipeline *plan.RequestPipeline
	monitor  *ExecutionMonitor
	exec     plan.Executor
	selector *signal.Selector
	latch    *signal.Latch
	store    audit.Store
	metrics  *telemetry.MissionMetrics
	logger   *slog.Logger
	tracer   trace.Tracer
	runID    string

	phase          Phase
	done           bool
	selectedWP     string
	patrolCleared  bool
	resultLogged   bool
	replanFailures int
}

// New creates an orchestrator in the Starting phase.
func New(cfg Config, deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:      cfg,
		problem:  deps.Problem,
		pipeline: deps.Pipeline,
		monitor:  NewExecutionMonitor(deps.Executor),
		exec:     deps.Executor,
		selector: deps.Selector,
		latch:    deps.Latch,
		store:    deps.Audit,
		metrics:  deps.Metrics,
		logger:   logger,
		tracer:   otel.Tracer("sentinel/mission"),
		runID:    deps.RunID,
		phase:    PhaseStarting,
	}
}

// Phase returns the active phase.
func (o *Orchestrator) Phase() Phase {
	return o.phase
}

// Done reports whether the mission cycle has completed. The cycle is
// single-shot: a new sweep requires an external restart.
func (o *Orchestrator) Done() bool {
	return o.done
}

// SelectedWaypoint returns the return waypoint consumed from the selector,
// or empty before one has been chosen.
func (o *Orchestrator) SelectedWaypoint() string {
	return o.selectedWP
}

// Bootstrap seeds the problem store with the mission's instances and the
// initial world facts.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	if err := o.problem.AddInstance(ctx, knowledge.Instance{Name: o.cfg.Robot, Type: "robot"}); err != nil {
		return err
	}
	waypoints := append([]string{o.cfg.ControlWaypoint}, o.cfg.PatrolRoute...)
	for _, wp := range waypoints {
		if err := o.problem.AddInstance(ctx, knowledge.Instance{Name: wp, Type: "waypoint"}); err != nil {
			return err
		}
	}
	for _, conn := range o.cfg.Connections {
		if err := o.problem.AddPredicate(ctx, knowledge.Connected(conn[0], conn[1])); err != nil {
			return err
		}
	}
	return o.problem.AddPredicate(ctx, knowledge.RobotAt(o.cfg.Robot, o.cfg.ControlWaypoint))
}

// Run ticks the orchestrator at the given cadence until the context is
// canceled or the mission completes.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := o.Tick(ctx); err != nil {
				o.logger.ErrorContext(ctx, "tick failed", "error", err, "phase", o.phase)
				o.metrics.RecordError(ctx, err, "orchestrator")
			}
			if o.done {
				return nil
			}
		}
	}
}

// Tick advances the mission by one step. Errors returned here are
// conditions worth logging; none of them stop the tick loop.
func (o *Orchestrator) Tick(ctx context.Context) error {
	ctx, span := o.tracer.Start(ctx, "Mission.Tick",
		trace.WithAttributes(attribute.String("phase", string(o.phase))),
	)
	defer span.End()

	switch o.phase {
	case PhaseStarting:
		return o.tickStarting(ctx)
	case PhasePatrolMonitoring:
		return o.tickMonitoring(ctx, true)
	case PhaseReturnMonitoring:
		return o.tickMonitoring(ctx, false)
	}
	return errors.New(errors.CodeInternal, "unknown phase", nil).WithContext("phase", string(o.phase))
}

// patrolGoal is "robot at the final patrol waypoint AND every waypoint
// patrolled".
func (o *Orchestrator) patrolGoal() knowledge.Goal {
	final := o.cfg.PatrolRoute[len(o.cfg.PatrolRoute)-1]
	preds := make([]knowledge.Predicate, 0, len(o.cfg.PatrolRoute)+1)
	preds = append(preds, knowledge.RobotAt(o.cfg.Robot, final))
	for _, wp := range o.cfg.PatrolRoute {
		preds = append(preds, knowledge.Patrolled(wp))
	}
	return knowledge.And(preds...)
}

func (o *Orchestrator) tickStarting(ctx context.Context) error {
	if err := o.problem.SetGoal(ctx, o.patrolGoal()); err != nil {
		return errors.New(errors.CodeInternal, "setting patrol goal", err)
	}
	return o.requestAndStart(ctx, EventPlanStarted)
}

func (o *Orchestrator) tickMonitoring(ctx context.Context, patrol bool) error {
	for _, status := range o.monitor.Feedback(ctx) {
		o.logger.DebugContext(ctx, "action progress",
			"action", status.Action,
			"state", string(status.State),
			"completion", status.Completion,
		)
	}

	result, finished := o.monitor.Finished(ctx)
	if !finished {
		return nil
	}
	o.auditResult(ctx, result)

	if result.Success {
		if patrol {
			return o.onPatrolSuccess(ctx)
		}
		return o.onReturnSuccess(ctx)
	}
	return o.replan(ctx, result)
}

// onPatrolSuccess clears the patrolled facts, consults the selector, and
// launches the return plan. The predicate cleanup must complete before the
// next goal is computed: stale facts would make the new goal immediately
// satisfied.
func (o *Orchestrator) onPatrolSuccess(ctx context.Context) error {
	if !o.patrolCleared {
		for _, wp := range o.cfg.PatrolRoute {
			if err := o.problem.RemovePredicate(ctx, knowledge.Patrolled(wp)); err != nil {
				return errors.New(errors.CodeInternal, "clearing patrolled predicate", err)
			}
		}
		o.patrolCleared = true
	}

	value, set := o.latch.Read()
	if !set {
		// Documented stall: no selector observed yet. Hold position and
		// re-read the latch on the next tick; never pick a default.
		o.logger.WarnContext(ctx, "patrol complete but no selector received; holding position")
		o.metrics.RecordError(ctx, errors.New(errors.CodeInvalidSelector, "selector unset", nil).WithRecoverable(true), "orchestrator")
		return nil
	}
	target, err := o.selector.Resolve(value)
	if err != nil {
		o.logger.WarnContext(ctx, "selector maps to no waypoint; holding position", "value", value)
		o.metrics.RecordError(ctx, err, "orchestrator")
		return nil
	}

	o.selectedWP = target
	if err := o.problem.SetGoal(ctx, knowledge.And(knowledge.RobotAt(o.cfg.Robot, target))); err != nil {
		return errors.New(errors.CodeInternal, "setting return goal", err)
	}
	o.logger.InfoContext(ctx, "patrol complete, returning", "waypoint", target, "selector", value)
	return o.requestAndStart(ctx, EventPlanStarted)
}

func (o *Orchestrator) onReturnSuccess(ctx context.Context) error {
	if err := o.problem.RemovePredicate(ctx, knowledge.RobotAt(o.cfg.Robot, o.selectedWP)); err != nil {
		return errors.New(errors.CodeInternal, "clearing return predicate", err)
	}
	o.done = true
	o.logger.InfoContext(ctx, "mission complete", "waypoint", o.selectedWP)
	o.audit(ctx, audit.KindPhaseTransition, string(o.phase), "mission_complete", o.selectedWP)
	return nil
}

// replan logs every failed action and requests a new plan from fresh
// snapshots. Replanning never advances the phase.
func (o *Orchestrator) replan(ctx context.Context, result *plan.Result) error {
	for _, status := range result.FailedActions() {
		o.logger.ErrorContext(ctx, "action failed",
			"action", status.Action,
			"message", status.Message,
		)
		o.metrics.RecordError(ctx, errors.New(errors.CodeActionFailed, status.Message, nil).WithRecoverable(true), "executor")
	}
	o.metrics.RecordReplan(ctx, string(o.phase))
	return o.requestAndStart(ctx, EventExecutionFailed)
}

// requestAndStart asks the pipeline for a plan and hands it to the executor.
// The advance event decides whether a started plan moves the phase forward
// (EventPlanStarted) or holds it (EventExecutionFailed, replan path).
func (o *Orchestrator) requestAndStart(ctx context.Context, advance Event) error {
	p, err := o.pipeline.Request(ctx)
	if err != nil {
		o.metrics.RecordPlanRequest(ctx, "not_found")
		if errors.CodeOf(err) == errors.CodePlanNotFound {
			o.replanFailures++
			if o.cfg.ReplanAttempts > 0 && o.replanFailures >= o.cfg.ReplanAttempts {
				fatal := errors.New(errors.CodePlanNotFound, "replan budget exhausted", err).
					WithContext("attempts", o.replanFailures).
					WithRecoverable(false)
				o.metrics.RecordError(ctx, fatal, "orchestrator")
				o.logger.ErrorContext(ctx, "replan budget exhausted; mission needs operator attention",
					"attempts", o.replanFailures)
				return nil
			}
			goal, _ := o.problem.Goal(ctx)
			o.logger.InfoContext(ctx, "no plan found, will retry", "goal", string(goal))
			return nil
		}
		return err
	}
	o.metrics.RecordPlanRequest(ctx, "found")
	o.replanFailures = 0

	ok, err := o.exec.Start(ctx, p)
	if err != nil {
		return errors.New(errors.CodeInternal, "starting plan execution", err)
	}
	if !ok {
		o.logger.WarnContext(ctx, "executor rejected plan, will retry", "plan", p.ID)
		o.metrics.RecordError(ctx, errors.New(errors.CodeExecutionRejected, "executor rejected plan", nil).WithRecoverable(true), "executor")
		return nil
	}
	o.resultLogged = false

	if advance == EventPlanStarted {
		o.setPhase(ctx, Transition(o.phase, EventPlanStarted))
		o.patrolCleared = false
	}
	return nil
}

func (o *Orchestrator) setPhase(ctx context.Context, next Phase) {
	if next == o.phase {
		return
	}
	o.logger.InfoContext(ctx, "phase transition", "from", string(o.phase), "to", string(next))
	o.audit(ctx, audit.KindPhaseTransition, string(next), "entered", string(o.phase))
	o.phase = next
	o.metrics.RecordPhase(ctx, next.Ordinal(), string(next))
}

// auditResult records a terminal execution result once. A stall (unset
// selector, failed replan) re-observes the same result on later ticks and
// must not duplicate the event.
func (o *Orchestrator) auditResult(ctx context.Context, result *plan.Result) {
	if o.resultLogged {
		return
	}
	o.resultLogged = true

	status := "success"
	var failures []string
	if !result.Success {
		status = "failure"
		for _, action := range result.FailedActions() {
			failures = append(failures, action.Action+": "+action.Message)
		}
	}
	o.audit(ctx, audit.KindExecutionResult, string(o.phase), status, strings.Join(failures, "; "))
}

func (o *Orchestrator) audit(ctx context.Context, kind, subject, status, detail string) {
	if o.store == nil {
		return
	}
	_ = o.store.Record(ctx, audit.Event{
		RunID:   o.runID,
		Kind:    kind,
		Subject: subject,
		Status:  status,
		Detail:  detail,
	})
}
