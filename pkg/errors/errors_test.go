package errors

import (
	"encoding/json"
	stderrors "errors"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cause := stderrors.New("socket closed")
	err := New(CodeNavUnavailable, "server not ready", cause)
	want := "[NAV_UNAVAILABLE] server not ready: socket closed"
	if err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
}

func TestRecoverableClassification(t *testing.T) {
	if IsRecoverable(nil) {
		t.Fatalf("nil must not be recoverable")
	}
	soft := New(CodePlanNotFound, "no plan", nil).WithRecoverable(true)
	if !IsRecoverable(soft) {
		t.Fatalf("expected recoverable")
	}
	hard := New(CodeNavUnavailable, "gave up", nil).WithRecoverable(false)
	if IsRecoverable(hard) {
		t.Fatalf("expected non-recoverable")
	}
	// Untyped errors default to recoverable so the tick loop keeps going.
	if !IsRecoverable(stderrors.New("plain")) {
		t.Fatalf("untyped errors should be recoverable")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(CodeInvalidSelector, "bad value", nil)); got != CodeInvalidSelector {
		t.Fatalf("unexpected code: %s", got)
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeInternal {
		t.Fatalf("unexpected code for untyped: %s", got)
	}
}

func TestMarshalJSON(t *testing.T) {
	err := New(CodeActionFailed, "move failed", nil).
		WithRecoverable(true).
		WithContext("action", "move")
	raw, jsonErr := json.Marshal(err)
	if jsonErr != nil {
		t.Fatalf("marshal: %v", jsonErr)
	}
	var decoded map[string]any
	if jsonErr := json.Unmarshal(raw, &decoded); jsonErr != nil {
		t.Fatalf("unmarshal: %v", jsonErr)
	}
	if decoded["code"] != string(CodeActionFailed) {
		t.Fatalf("unexpected code field: %v", decoded["code"])
	}
	if decoded["recoverable"] != true {
		t.Fatalf("expected recoverable true")
	}
}
