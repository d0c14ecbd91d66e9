// SPDX-License-Identifier: Apache-2.0
// Package errors provides the typed error taxonomy for the mission core.
// Every condition the orchestrator handles is classified by code and by
// whether the mission can recover from it without operator intervention.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies mission errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodePlanNotFound indicates the planner reported the goal infeasible.
	// Recoverable: the orchestrator retries on a later tick.
	CodePlanNotFound ErrorCode = "PLAN_NOT_FOUND"

	// CodeActionFailed indicates a plan action failed during execution.
	// Recoverable: triggers a replan from fresh snapshots.
	CodeActionFailed ErrorCode = "ACTION_FAILED"

	// CodeNavUnavailable indicates the navigation server did not become
	// ready within the retry budget.
	CodeNavUnavailable ErrorCode = "NAV_UNAVAILABLE"

	// CodeInvalidSelector indicates the mission selector value maps to no
	// waypoint. Recoverable: the mission stalls until a valid value arrives.
	CodeInvalidSelector ErrorCode = "INVALID_SELECTOR"

	// CodeWaypointNotFound indicates a symbolic waypoint id has no pose.
	CodeWaypointNotFound ErrorCode = "WAYPOINT_NOT_FOUND"

	// CodeExecutionRejected indicates the executor refused to start a plan.
	CodeExecutionRejected ErrorCode = "EXECUTION_REJECTED"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"
)

// MissionError is a typed error with context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type MissionError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]any
	Recoverable bool
}

// Error implements the error interface.
func (e *MissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *MissionError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *MissionError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code        string         `json:"code"`
		Message     string         `json:"message"`
		Err         string         `json:"error,omitempty"`
		Recoverable bool           `json:"recoverable"`
		Context     map[string]any `json:"context,omitempty"`
	}{
		Code:        string(e.Code),
		Message:     e.Message,
		Err:         errText(e.Err),
		Recoverable: e.Recoverable,
		Context:     e.Context,
	})
}

// New creates a MissionError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *MissionError {
	return &MissionError{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]any),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *MissionError) WithContext(key string, value any) *MissionError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *MissionError) WithRecoverable(recoverable bool) *MissionError {
	e.Recoverable = recoverable
	return e
}

// AsMissionError converts err to a MissionError, wrapping unknown errors
// under CodeInternal. Returns nil for a nil error.
func AsMissionError(err error) *MissionError {
	if err == nil {
		return nil
	}
	if me, ok := err.(*MissionError); ok {
		return me
	}
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the error code of err, or CodeInternal for untyped errors.
func CodeOf(err error) ErrorCode {
	if me := AsMissionError(err); me != nil {
		return me.Code
	}
	return CodeInternal
}

// IsRecoverable reports whether err carries an explicit recoverable flag.
// Untyped errors are treated as recoverable so callers keep ticking.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if me, ok := err.(*MissionError); ok {
		return me.Recoverable
	}
	return true
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
