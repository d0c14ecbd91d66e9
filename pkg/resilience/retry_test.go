package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/roverops/sentinel/pkg/errors"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	rc := DefaultRetryConfig().WithMaxAttempts(5).WithInitialDelay(time.Millisecond)
	err := rc.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return stderrors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryBounded(t *testing.T) {
	attempts := 0
	rc := DefaultRetryConfig().WithMaxAttempts(4).WithInitialDelay(time.Millisecond)
	err := rc.Do(context.Background(), func() error {
		attempts++
		return stderrors.New("still failing")
	})
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", attempts)
	}
}

func TestRetryStopsOnNonRecoverable(t *testing.T) {
	attempts := 0
	rc := DefaultRetryConfig().WithMaxAttempts(5).WithInitialDelay(time.Millisecond)
	fatal := errors.New(errors.CodeNavUnavailable, "gone", nil).WithRecoverable(false)
	err := rc.Do(context.Background(), func() error {
		attempts++
		return fatal
	})
	if err != fatal {
		t.Fatalf("expected fatal error back, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("non-recoverable error must not retry, got %d attempts", attempts)
	}
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rc := DefaultRetryConfig().WithMaxAttempts(3).WithInitialDelay(time.Hour)
	err := rc.Do(ctx, func() error { return stderrors.New("transient") })
	if errors.CodeOf(err) != errors.CodeTimeout {
		t.Fatalf("expected timeout classification, got %v", err)
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if errors.CodeOf(err) != errors.CodeTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}

	if err := WithTimeout(context.Background(), time.Second, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
