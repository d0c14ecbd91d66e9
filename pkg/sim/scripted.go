// Package sim provides scripted stand-ins for the mission's external
// collaborators so the binary and the tests can run a full patrol cycle
// without a planner daemon or a navigation stack.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/roverops/sentinel/pkg/errors"
	"github.com/roverops/sentinel/pkg/knowledge"
	"github.com/roverops/sentinel/pkg/plan"
)

// PlannedResponse is one scripted answer from the planner: a plan, an
// infeasibility (nil plan, nil error) or a failure.
type PlannedResponse struct {
	Plan *plan.Plan
	Err  error
}

// ScriptedPlanner replays a queue of responses. An exhausted queue reports
// infeasibility, mirroring a planner that finds no plan.
type ScriptedPlanner struct {
	mu    sync.Mutex
	queue []PlannedResponse
	calls int
}

// NewScriptedPlanner creates a planner with the given response queue.
func NewScriptedPlanner(responses ...PlannedResponse) *ScriptedPlanner {
	return &ScriptedPlanner{queue: responses}
}

// Enqueue appends responses to the script.
func (p *ScriptedPlanner) Enqueue(responses ...PlannedResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, responses...)
}

// Calls returns how many times the planner was consulted.
func (p *ScriptedPlanner) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Plan pops the next scripted response.
func (p *ScriptedPlanner) Plan(_ context.Context, _ knowledge.DomainSnapshot, _ knowledge.ProblemSnapshot) (*plan.Plan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.queue) == 0 {
		return nil, nil
	}
	next := p.queue[0]
	p.queue = p.queue[1:]
	return next.Plan, next.Err
}

// Handler executes one action. The report callback publishes completion
// for the executor's feedback surface.
type Handler func(ctx context.Context, action plan.Action, report func(completion float64, note string)) error

// Executor runs plan actions sequentially through registered handlers.
// Actions without a handler succeed after their declared duration, which
// keeps patrol actions trivially simulatable.
type Executor struct {
	mu        sync.Mutex
	handlers  map[string]Handler
	executing bool
	statuses  []plan.ActionStatus
	result    *plan.Result
	cancel    context.CancelFunc
}

// NewExecutor creates an executor with no handlers registered.
func NewExecutor() *Executor {
	return &Executor{handlers: make(map[string]Handler)}
}

// Handle registers the handler for an action name.
func (e *Executor) Handle(name string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[name] = h
}

// Start implements plan.Executor. A second plan while one is running is
// rejected, not queued.
func (e *Executor) Start(ctx context.Context, p *plan.Plan) (bool, error) {
	if p == nil || len(p.Actions) == 0 {
		return false, errors.New(errors.CodeExecutionRejected, "empty plan", nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.executing {
		return false, nil
	}

	e.statuses = make([]plan.ActionStatus, len(p.Actions))
	for i, action := range p.Actions {
		e.statuses[i] = plan.ActionStatus{Action: action.String(), State: plan.ActionPending}
	}
	e.result = nil
	e.executing = true

	// Execution outlives the caller's tick context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	go e.run(runCtx, p)
	return true, nil
}

// Stop cancels any in-flight execution.
func (e *Executor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Executing implements plan.Executor.
func (e *Executor) Executing(_ context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executing
}

// Feedback implements plan.Executor.
func (e *Executor) Feedback(_ context.Context) []plan.ActionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]plan.ActionStatus, len(e.statuses))
	copy(out, e.statuses)
	return out
}

// Result implements plan.Executor. The result stays available until the
// next Start.
func (e *Executor) Result(_ context.Context) (*plan.Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.executing || e.result == nil {
		return nil, false
	}
	return e.result, true
}

func (e *Executor) run(ctx context.Context, p *plan.Plan) {
	success := true
	for i, action := range p.Actions {
		e.setStatus(i, plan.ActionExecuting, 0, "")
		err := e.dispatch(ctx, i, action)
		if err != nil {
			e.setStatus(i, plan.ActionFailed, 0, err.Error())
			success = false
			break
		}
		e.setStatus(i, plan.ActionSucceeded, 1, "")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.result = &plan.Result{Success: success, Actions: append([]plan.ActionStatus(nil), e.statuses...)}
	e.executing = false
	e.cancel = nil
}

func (e *Executor) dispatch(ctx context.Context, index int, action plan.Action) error {
	e.mu.Lock()
	h, ok := e.handlers[action.Name]
	e.mu.Unlock()

	if !ok {
		return e.idle(ctx, index, action.Duration)
	}
	return h(ctx, action, func(completion float64, note string) {
		e.setStatus(index, plan.ActionExecuting, completion, note)
	})
}

// idle simulates an unhandled action by waiting out its duration.
func (e *Executor) idle(ctx context.Context, index int, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		e.setStatus(index, plan.ActionExecuting, 0.5, "")
		return nil
	}
}

func (e *Executor) setStatus(index int, state plan.ActionState, completion float64, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.statuses) {
		return
	}
	e.statuses[index].State = state
	e.statuses[index].Completion = completion
	e.statuses[index].Message = message
}
