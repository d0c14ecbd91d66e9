package mission

import (
	"context"

	"github.com/roverops/sentinel/pkg/plan"
)

// ExecutionMonitor polls the executor for per-action feedback and terminal
// results. All calls are non-blocking status queries.
type ExecutionMonitor struct {
	exec plan.Executor
}

// NewExecutionMonitor wraps an executor.
func NewExecutionMonitor(exec plan.Executor) *ExecutionMonitor {
	return &ExecutionMonitor{exec: exec}
}

// Executing reports whether a plan is still running.
func (m *ExecutionMonitor) Executing(ctx context.Context) bool {
	return m.exec.Executing(ctx)
}

// Feedback returns the latest per-action statuses.
func (m *ExecutionMonitor) Feedback(ctx context.Context) []plan.ActionStatus {
	return m.exec.Feedback(ctx)
}

// Finished returns the terminal result once execution has stopped and a
// result is available. While either condition is unmet it returns false and
// the caller keeps polling on later ticks.
func (m *ExecutionMonitor) Finished(ctx context.Context) (*plan.Result, bool) {
	if m.exec.Executing(ctx) {
		return nil, false
	}
	return m.exec.Result(ctx)
}
