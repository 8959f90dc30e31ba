package core

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy determines retry behavior for failed requests.
type RetryPolicy interface {
	// NextDelay returns the delay before the next retry attempt and whether
	// to retry at all. attempt starts at 0 for the first retry after the
	// initial failure; elapsed is the total time spent on the request so far.
	NextDelay(attempt int, elapsed time.Duration, err error) (delay time.Duration, ok bool)
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries     int           // maximum retry attempts (default: 3)
	BaseDelay      time.Duration // initial delay before first retry (default: 1s)
	MaxDelay       time.Duration // per-attempt delay cap (default: 60s)
	MaxElapsed     time.Duration // total time budget across attempts (default: 5m)
	RateLimitDelay time.Duration // fixed delay for rate-limit classified failures (default: 60s)
	Jitter         float64       // jitter factor 0.0-1.0 (default: 0.2)
}

// DefaultRetryPolicy returns a retry policy with the standard defaults:
// exponential backoff doubling from 1s, capped at 60s per attempt and
// 5 minutes total, with 20% jitter and max 3 retries.
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(RetryConfig{})
}

// NewRetryPolicy creates a retry policy with the given configuration.
// Zero fields take their defaults.
func NewRetryPolicy(cfg RetryConfig) RetryPolicy {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 60 * time.Second
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 5 * time.Minute
	}
	if cfg.RateLimitDelay <= 0 {
		cfg.RateLimitDelay = 60 * time.Second
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		cfg.Jitter = 0.2
	}
	return &exponentialBackoff{cfg: cfg}
}

type exponentialBackoff struct {
	cfg RetryConfig
}

func (e *exponentialBackoff) NextDelay(attempt int, elapsed time.Duration, err error) (time.Duration, bool) {
	if attempt >= e.cfg.MaxRetries {
		return 0, false
	}
	if elapsed >= e.cfg.MaxElapsed {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	if !IsRetryable(err) {
		return 0, false
	}

	// An explicit rate-limit classification (local limiter rejection, not a
	// 429 response) uses a fixed long delay instead of the exponential
	// sequence. Kept as a distinct case on purpose.
	var apiErr *APIError
	if errors.Is(err, ErrRateLimited) && !errors.As(err, &apiErr) {
		return e.cfg.RateLimitDelay, true
	}

	// baseDelay * 2^attempt
	delay := float64(e.cfg.BaseDelay) * math.Pow(2, float64(attempt))

	// delay * (1 + random(-jitter, +jitter))
	if e.cfg.Jitter > 0 {
		jitterRange := delay * e.cfg.Jitter
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay > float64(e.cfg.MaxDelay) {
		delay = float64(e.cfg.MaxDelay)
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay), true
}
