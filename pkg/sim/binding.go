package sim

import (
	"context"
	"sync"

	"github.com/roverops/sentinel/pkg/errors"
	"github.com/roverops/sentinel/pkg/plan"
)

// GoalRequester accepts a navigation goal by waypoint id. Satisfied by
// nav.Adapter.
type GoalRequester interface {
	RequestGoal(waypointID string) error
}

type moveOutcome struct {
	success bool
	note    string
}

// MoveBinding routes the navigation adapter's progress reports into the
// executor's currently running move action. It implements nav.ProgressSink.
//
// Construction order matters: create the binding, hand it to the adapter as
// its sink, then Bind the adapter back so the move handler can submit goals.
type MoveBinding struct {
	mu       sync.Mutex
	adapter  GoalRequester
	report   func(completion float64, note string)
	terminal chan moveOutcome
}

// NewMoveBinding creates an unbound binding.
func NewMoveBinding() *MoveBinding {
	return &MoveBinding{}
}

// Bind attaches the goal requester.
func (b *MoveBinding) Bind(adapter GoalRequester) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adapter = adapter
}

// Progress implements nav.ProgressSink.
func (b *MoveBinding) Progress(completion float64, note string) {
	b.mu.Lock()
	report := b.report
	b.mu.Unlock()
	if report != nil {
		report(completion, note)
	}
}

// Finished implements nav.ProgressSink.
func (b *MoveBinding) Finished(success bool, completion float64, note string) {
	b.Progress(completion, note)
	b.mu.Lock()
	terminal := b.terminal
	b.mu.Unlock()
	if terminal != nil {
		select {
		case terminal <- moveOutcome{success: success, note: note}:
		default:
		}
	}
}

// Handler returns the executor handler for the move action. The last action
// argument is the destination waypoint, per the grounded form
// "move <robot> <from> <to>".
func (b *MoveBinding) Handler() Handler {
	return func(ctx context.Context, action plan.Action, report func(completion float64, note string)) error {
		if len(action.Args) == 0 {
			return errors.New(errors.CodeActionFailed, "move action without destination", nil)
		}
		target := action.Args[len(action.Args)-1]

		b.mu.Lock()
		adapter := b.adapter
		b.report = report
		b.terminal = make(chan moveOutcome, 1)
		terminal := b.terminal
		b.mu.Unlock()

		if adapter == nil {
			return errors.New(errors.CodeInternal, "move binding has no adapter", nil)
		}
		if err := adapter.RequestGoal(target); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case outcome := <-terminal:
			if !outcome.success {
				return errors.New(errors.CodeActionFailed, outcome.note, nil).
					WithContext("waypoint", target).
					WithRecoverable(true)
			}
			return nil
		}
	}
}
