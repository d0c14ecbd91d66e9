// Package nav drives a single navigate-to-waypoint goal to completion:
// waiting for the motion server, submitting the goal, converting distance
// feedback into a normalized completion fraction, and detecting arrival.
package nav

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/roverops/sentinel/pkg/audit"
	"github.com/roverops/sentinel/pkg/errors"
	"github.com/roverops/sentinel/pkg/geo"
	"github.com/roverops/sentinel/pkg/resilience"
	"github.com/roverops/sentinel/pkg/telemetry"
	"github.com/roverops/sentinel/pkg/waypoint"
)

// State is the adapter's lifecycle state for one navigation goal.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingServer State = "awaiting_server"
	StateNavigating     State = "navigating"
	StateArrived        State = "arrived"
)

// Service is the motion-execution collaborator. Ready must return quickly;
// the adapter bounds each call with its own timeout.
type Service interface {
	Ready(ctx context.Context) error
	SendGoal(ctx context.Context, target geo.Pose) (GoalHandle, error)
}

// GoalHandle is the live navigation goal: a feedback stream of remaining
// distance and a terminal result.
type GoalHandle interface {
	Feedback() <-chan float64
	Done() <-chan error
}

// PoseSource exposes the most recent robot pose.
type PoseSource interface {
	Latest() (geo.Pose, bool)
}

// ProgressSink receives the adapter's completion reports. It is the same
// feedback channel the plan executor consumes for the move action.
type ProgressSink interface {
	Progress(completion float64, note string)
	Finished(success bool, completion float64, note string)
}

// Config holds the adapter tuning parameters.
type Config struct {
	// ArrivalThreshold is the distance under which the goal counts as
	// reached.
	ArrivalThreshold float64

	// ReadyTimeout bounds a single server-readiness attempt.
	ReadyTimeout time.Duration

	// ReadyAttempts bounds total readiness attempts per goal. Exhausting
	// it fails the goal instead of blocking forever.
	ReadyAttempts int
}

// Deps are the collaborators the adapter composes. Audit, Metrics and
// Logger may be nil.
type Deps struct {
	Registry *waypoint.Registry
	Service  Service
	Poses    PoseSource
	Sink     ProgressSink
	Audit    audit.Store
	Metrics  *telemetry.MissionMetrics
	Logger   *slog.Logger
	RunID    string
}

// Adapter is the navigation action state machine. Tick runs on its own
// fixed-rate schedule; goal requests may arrive from the executor's
// goroutine, so adapter state is mutex-guarded. The feedback stream writes
// only through an atomic cell and the sink.
type Adapter struct {
	cfg      Config
	registry *waypoint.Registry
	svc      Service
	poses    PoseSource
	sink     ProgressSink
	store    audit.Store
	metrics  *telemetry.MissionMetrics
	logger   *slog.Logger
	runID    string

	mu         sync.Mutex
	state      State
	targetID   string
	target     geo.Pose
	initial    float64
	readyTries int
	cancelFeed context.CancelFunc
}

// NewAdapter creates an idle adapter.
func NewAdapter(cfg Config, deps Deps) *Adapter {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		cfg:      cfg,
		registry: deps.Registry,
		svc:      deps.Service,
		poses:    deps.Poses,
		sink:     deps.Sink,
		store:    deps.Audit,
		metrics:  deps.Metrics,
		logger:   logger,
		runID:    deps.RunID,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// RequestGoal accepts a new navigation goal. Only one goal is active at a
// time; a request while busy is rejected.
func (a *Adapter) RequestGoal(waypointID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateIdle {
		return errors.New(errors.CodeInternal, "navigation goal already active", nil).
			WithContext("state", string(a.state))
	}
	a.state = StateAwaitingServer
	a.targetID = waypointID
	a.readyTries = 0
	a.sink.Progress(0, "move starting")
	return nil
}

// Run ticks the adapter at the given cadence until the context is canceled.
func (a *Adapter) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.stopFeedback()
			return ctx.Err()
		case <-ticker.C:
			if err := a.Tick(ctx); err != nil {
				a.logger.ErrorContext(ctx, "navigation tick failed", "error", err)
				a.metrics.RecordError(ctx, err, "nav")
			}
		}
	}
}

// Tick advances the state machine by one step.
func (a *Adapter) Tick(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateIdle:
		return nil
	case StateAwaitingServer:
		return a.tickAwaitingServer(ctx)
	case StateNavigating:
		a.tickNavigating()
		return nil
	case StateArrived:
		a.tickArrived(ctx)
		return nil
	}
	return nil
}

func (a *Adapter) tickAwaitingServer(ctx context.Context) error {
	a.readyTries++
	err := resilience.WithTimeout(ctx, a.cfg.ReadyTimeout, a.svc.Ready)
	if err != nil {
		if a.cfg.ReadyAttempts > 0 && a.readyTries >= a.cfg.ReadyAttempts {
			a.sink.Finished(false, 0, "navigation server unavailable")
			a.auditGoal(ctx, "unavailable", "server not ready within retry budget")
			a.reset()
			return errors.New(errors.CodeNavUnavailable, "server not ready within retry budget", err).
				WithContext("attempts", a.readyTries).
				WithRecoverable(false)
		}
		a.logger.WarnContext(ctx, "waiting for navigation server", "attempt", a.readyTries)
		return nil
	}

	target, err := a.registry.Lookup(a.targetID)
	if err != nil {
		a.sink.Finished(false, 0, err.Error())
		a.auditGoal(ctx, "failed", err.Error())
		a.reset()
		return err
	}
	current, ok := a.poses.Latest()
	if !ok {
		// No pose observed yet; the initial distance cannot be captured.
		a.logger.WarnContext(ctx, "waiting for first pose update")
		return nil
	}

	a.target = target
	// The initial distance is fixed here and never recomputed mid-goal;
	// recomputing it would corrupt the progress metric.
	a.initial = geo.Distance(target, current)

	handle, err := a.svc.SendGoal(ctx, target)
	if err != nil {
		a.sink.Finished(false, 0, "goal submission failed")
		a.auditGoal(ctx, "failed", err.Error())
		a.reset()
		return errors.New(errors.CodeNavUnavailable, "sending navigation goal", err).
			WithRecoverable(false)
	}

	feedCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancelFeed = cancel
	go a.consumeFeedback(feedCtx, handle, a.initial, a.targetID)

	a.logger.InfoContext(ctx, "navigation goal sent", "waypoint", a.targetID, "initial_distance", a.initial)
	a.auditGoal(ctx, "sent", strconv.FormatFloat(a.initial, 'f', -1, 64))
	a.state = StateNavigating
	return nil
}

func (a *Adapter) tickNavigating() {
	current, ok := a.poses.Latest()
	if !ok {
		return
	}
	if geo.Distance(current, a.target) < a.cfg.ArrivalThreshold {
		a.state = StateArrived
	}
}

// tickArrived reports success exactly once, then returns to idle for the
// next goal.
func (a *Adapter) tickArrived(ctx context.Context) {
	a.sink.Finished(true, 1.0, "move completed")
	a.logger.Info("navigation goal reached", "waypoint", a.targetID)
	a.auditGoal(ctx, "reached", "")
	a.reset()
}

// consumeFeedback converts each remaining-distance message into a clamped
// completion fraction. It runs on its own goroutine; the only state it
// touches is the sink and metrics.
func (a *Adapter) consumeFeedback(ctx context.Context, handle GoalHandle, initial float64, waypointID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case remaining, open := <-handle.Feedback():
			if !open {
				return
			}
			completion := geo.Progress(initial, remaining)
			a.sink.Progress(completion, "move running")
			a.metrics.RecordNavProgress(ctx, waypointID, completion)
		case <-handle.Done():
			return
		}
	}
}

// auditGoal records a goal lifecycle event. Audit failures never fail a
// navigation tick.
func (a *Adapter) auditGoal(ctx context.Context, status, detail string) {
	if a.store == nil {
		return
	}
	_ = a.store.Record(ctx, audit.Event{
		RunID:   a.runID,
		Kind:    audit.KindNavGoal,
		Subject: a.targetID,
		Status:  status,
		Detail:  detail,
	})
}

// reset returns the adapter to idle. Callers hold the mutex.
func (a *Adapter) reset() {
	if a.cancelFeed != nil {
		a.cancelFeed()
		a.cancelFeed = nil
	}
	a.state = StateIdle
	a.targetID = ""
	a.initial = 0
	a.readyTries = 0
}

func (a *Adapter) stopFeedback() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelFeed != nil {
		a.cancelFeed()
		a.cancelFeed = nil
	}
}
