package genai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		attempt int
		upper   time.Duration
	}{
		{"no delay before first attempt", 0, 0},
		{"negative attempt", -1, 0},
		{"first retry", 1, time.Second},
		{"second retry", 2, 2 * time.Second},
		{"capped", 10, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for range 50 {
				got := CalculateBackoff(tt.attempt, time.Second, 5*time.Second)
				if got < 0 || got > tt.upper {
					t.Fatalf("CalculateBackoff(%d) = %v, want within [0, %v]", tt.attempt, got, tt.upper)
				}
			}
		})
	}
}

func TestSleep(t *testing.T) {
	t.Parallel()
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Sleep() = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep(canceled) = %v, want context.Canceled", err)
	}
}

func TestHasSufficientBudget(t *testing.T) {
	t.Parallel()
	if !HasSufficientBudget(context.Background(), time.Hour) {
		t.Error("no deadline should always have budget")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if HasSufficientBudget(ctx, time.Second) {
		t.Error("50ms deadline should not cover 1s")
	}
	if !HasSufficientBudget(ctx, time.Millisecond) {
		t.Error("50ms deadline should cover 1ms")
	}
}

var fastRetry = RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("retries transient errors", func(t *testing.T) {
		t.Parallel()
		calls, retries := 0, 0
		got, err := withRetry(context.Background(), fastRetry, func(int, error) { retries++ }, func() (string, error) {
			calls++
			if calls < 3 {
				return "", WrapError(errors.New("busy"), ProviderGroq, "m", 503)
			}
			return "ok", nil
		})
		if err != nil || got != "ok" {
			t.Fatalf("withRetry() = %q, %v", got, err)
		}
		if calls != 3 || retries != 2 {
			t.Errorf("calls = %d, retries = %d, want 3 and 2", calls, retries)
		}
	})

	t.Run("stops on fallback errors", func(t *testing.T) {
		t.Parallel()
		calls := 0
		_, err := withRetry(context.Background(), fastRetry, nil, func() (int, error) {
			calls++
			return 0, WrapError(errors.New("bad key"), ProviderGroq, "m", 401)
		})
		if err == nil || calls != 1 {
			t.Errorf("calls = %d, err = %v; want one call and an error", calls, err)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()
		calls := 0
		_, err := withRetry(context.Background(), fastRetry, nil, func() (int, error) {
			calls++
			return 0, errors.New("still busy")
		})
		if err == nil || calls != 3 {
			t.Errorf("calls = %d, err = %v; want 3 calls and an error", calls, err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := withRetry(ctx, fastRetry, nil, func() (int, error) {
			t.Error("fn must not run on a canceled context")
			return 0, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}
