package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyMaxRetries(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Jitter:     0,
	})

	for attempt := 0; attempt < 3; attempt++ {
		if _, ok := policy.NextDelay(attempt, 0, ErrNetwork); !ok {
			t.Errorf("NextDelay(%d) should allow retry", attempt)
		}
	}

	if _, ok := policy.NextDelay(3, 0, ErrNetwork); ok {
		t.Error("NextDelay(3) should not allow retry (exceeds max)")
	}
}

func TestRetryPolicyExponentialDelays(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		MaxRetries: 5,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Jitter:     0,
	})

	for attempt := 0; attempt < 4; attempt++ {
		delay, ok := policy.NextDelay(attempt, 0, ErrNetwork)
		if !ok {
			t.Fatalf("NextDelay(%d) should allow retry", attempt)
		}

		want := 100 * time.Millisecond * time.Duration(1<<attempt)
		if delay != want {
			t.Errorf("attempt %d: delay = %v, want %v", attempt, delay, want)
		}
	}
}

func TestRetryPolicyMaxDelayCap(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		MaxRetries: 10,
		BaseDelay:  time.Second,
		MaxDelay:   5 * time.Second,
		Jitter:     0,
	})

	delay, ok := policy.NextDelay(5, 0, ErrNetwork)
	if !ok {
		t.Fatal("should allow retry")
	}
	if delay != 5*time.Second {
		t.Errorf("delay = %v, want 5s (max cap)", delay)
	}
}

func TestRetryPolicyElapsedBudget(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		MaxRetries: 10,
		MaxElapsed: time.Minute,
		Jitter:     0,
	})

	if _, ok := policy.NextDelay(0, 59*time.Second, ErrNetwork); !ok {
		t.Error("should allow retry within elapsed budget")
	}
	if _, ok := policy.NextDelay(0, time.Minute, ErrNetwork); ok {
		t.Error("should not allow retry once elapsed budget is spent")
	}
}

func TestRetryPolicyRateLimitOverride(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		MaxRetries:     3,
		BaseDelay:      100 * time.Millisecond,
		RateLimitDelay: 60 * time.Second,
		Jitter:         0,
	})

	// An explicit rate-limit classification gets the fixed long delay.
	delay, ok := policy.NextDelay(0, 0, ErrRateLimited)
	if !ok {
		t.Fatal("rate-limited failure should be retryable")
	}
	if delay != 60*time.Second {
		t.Errorf("delay = %v, want fixed 60s for explicit rate limit", delay)
	}

	// A 429 API response stays on the exponential sequence.
	delay, ok = policy.NextDelay(0, 0, NewAPIError(429, "rate_limit_error", "slow down", ""))
	if !ok {
		t.Fatal("429 should be retryable")
	}
	if delay != 100*time.Millisecond {
		t.Errorf("delay = %v, want 100ms exponential base for 429", delay)
	}
}

func TestRetryPolicyNonRetryable(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		name string
		err  error
	}{
		{"nil", nil},
		{"ErrValidation", ErrValidation},
		{"ErrAuth", ErrAuth},
		{"ErrDecode", ErrDecode},
		{"ErrStream", ErrStream},
		{"APIError 400", NewAPIError(400, "invalid_request_error", "bad", "")},
		{"context.Canceled", context.Canceled},
		{"context.DeadlineExceeded", context.DeadlineExceeded},
		{"unknown", errors.New("mystery")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := policy.NextDelay(0, 0, tt.err); ok {
				t.Errorf("NextDelay(0, 0, %v) should not retry", tt.err)
			}
		})
	}
}

func TestRetryPolicyJitter(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Jitter:     0.5,
	})

	delays := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		delay, ok := policy.NextDelay(0, 0, ErrNetwork)
		if !ok {
			t.Fatal("should allow retry")
		}
		delays[delay] = true

		if delay < 500*time.Millisecond || delay > 1500*time.Millisecond {
			t.Errorf("delay %v outside jitter range [0.5s, 1.5s]", delay)
		}
	}

	if len(delays) < 2 {
		t.Error("jitter should produce varying delays")
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{})

	if _, ok := policy.NextDelay(0, 0, ErrNetwork); !ok {
		t.Error("default policy should allow first retry")
	}
	if _, ok := policy.NextDelay(3, 0, ErrNetwork); ok {
		t.Error("default policy should stop after 3 retries")
	}
}
