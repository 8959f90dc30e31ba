package transport

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/calder-ai/anthropic-go/core"
	"github.com/calder-ai/anthropic-go/ratelimit"
)

// Operation is one attempt of a logical request. It returns a non-nil
// Result whenever a response was received, even on error statuses.
type Operation func(ctx context.Context) (*Result, error)

// Pacer gates request starts. Acquire blocks until a slot is free and
// fails only on context cancellation.
type Pacer interface {
	Acquire(ctx context.Context) error
}

// RetryStats accumulates outcomes across logical requests. Counters are
// shared by all requests running through one Retrier.
type RetryStats struct {
	// TotalRequests counts logical requests, not attempts.
	TotalRequests uint64
	// SuccessfulFirstTry counts requests that succeeded without retrying.
	SuccessfulFirstTry uint64
	// RetriedRequests counts requests that needed at least one retry.
	RetriedRequests uint64
	// TotalRetryAttempts counts individual retry attempts.
	TotalRetryAttempts uint64
	// FailedRequests counts requests that exhausted their retries.
	FailedRequests uint64
	// TotalRetryDelay is the cumulative time slept between attempts.
	TotalRetryDelay time.Duration
}

// SuccessRate returns the fraction of requests that eventually succeeded.
func (s RetryStats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.TotalRequests-s.FailedRequests) / float64(s.TotalRequests)
}

// RetryRate returns the fraction of requests that needed a retry.
func (s RetryStats) RetryRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.RetriedRequests) / float64(s.TotalRequests)
}

// AverageRetries returns the mean retry count across retried requests.
func (s RetryStats) AverageRetries() float64 {
	if s.RetriedRequests == 0 {
		return 0
	}
	return float64(s.TotalRetryAttempts) / float64(s.RetriedRequests)
}

// RetrierConfig assembles the resilience pieces around a request.
type RetrierConfig struct {
	// Policy classifies failures and computes backoff delays.
	// Defaults to core.DefaultRetryPolicy.
	Policy core.RetryPolicy
	// Pacer, when set, gates every attempt (including retries).
	Pacer Pacer
	// Adaptive, when set, is fed rate-limit headers from every response.
	Adaptive *ratelimit.Adaptive
	// SmartDelay prefers server-directed delays (retry-after, then the
	// recommendation derived from quota headers) over the computed
	// backoff when a response carried them.
	SmartDelay bool
	// Telemetry observes request outcomes. Defaults to a no-op.
	Telemetry core.TelemetryHook
}

// Retrier executes logical requests across bounded retry attempts.
// Safe for concurrent use; the statistics lock is held only across
// counter updates, never across an attempt or a backoff sleep.
type Retrier struct {
	policy    core.RetryPolicy
	pacer     Pacer
	adaptive  *ratelimit.Adaptive
	smart     bool
	telemetry core.TelemetryHook

	mu    sync.Mutex
	stats RetryStats
}

// NewRetrier creates a Retrier from cfg.
func NewRetrier(cfg RetrierConfig) *Retrier {
	if cfg.Policy == nil {
		cfg.Policy = core.DefaultRetryPolicy()
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = core.NoopTelemetryHook{}
	}
	return &Retrier{
		policy:    cfg.Policy,
		pacer:     cfg.Pacer,
		adaptive:  cfg.Adaptive,
		smart:     cfg.SmartDelay,
		telemetry: cfg.Telemetry,
	}
}

// Do runs op until it succeeds, fails a non-retryable way, or exhausts
// the policy. Attempts for one call are strictly sequential; separate
// calls may run concurrently. The method and path label the request for
// telemetry only.
func (r *Retrier) Do(ctx context.Context, method, path string, op Operation) (*Result, error) {
	start := time.Now()
	r.telemetry.OnRequestStart(core.RequestStartEvent{
		Method: method,
		Path:   path,
		Start:  start,
	})

	r.mu.Lock()
	r.stats.TotalRequests++
	r.mu.Unlock()

	var lastResult *Result
	var lastErr error

	for attempt := 0; ; attempt++ {
		if r.pacer != nil {
			if err := r.pacer.Acquire(ctx); err != nil {
				r.finish(method, path, start, attempt+1, lastResult, err)
				return nil, err
			}
		}

		result, err := op(ctx)
		if result != nil && r.adaptive != nil {
			r.adaptive.UpdateFromHeaders(result.RateLimit)
		}
		lastResult = result

		if err == nil {
			r.recordSuccess(attempt)
			r.finish(method, path, start, attempt+1, result, nil)
			return result, nil
		}
		lastErr = err

		delay, retry := r.policy.NextDelay(attempt, time.Since(start), err)
		if !retry {
			r.recordFailure()
			r.finish(method, path, start, attempt+1, result, err)
			return result, lastErr
		}

		if r.smart && result != nil {
			if d := result.RateLimit.RecommendedDelay(); d > 0 {
				delay = d
			}
		}

		r.mu.Lock()
		r.stats.TotalRetryDelay += delay
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			r.recordFailure()
			r.finish(method, path, start, attempt+1, result, ctx.Err())
			return lastResult, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// DoStream runs a streaming operation with the same retry semantics.
// Only the connection phase is retried: once a success response is in
// hand the stream belongs to the caller.
func (r *Retrier) DoStream(ctx context.Context, method, path string, op func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	var resp *http.Response
	_, err := r.Do(ctx, method, path, func(ctx context.Context) (*Result, error) {
		var opErr error
		resp, opErr = op(ctx)
		if opErr != nil {
			return nil, opErr
		}

		res := &Result{
			Status:    resp.StatusCode,
			RequestID: resp.Header.Get("request-id"),
			RateLimit: ratelimit.ParseHeaders(resp.Header),
		}
		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return res, core.ParseAPIError(resp.StatusCode, body, res.RequestID)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Stats returns a snapshot of retry statistics.
func (r *Retrier) Stats() RetryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// ResetStats clears all counters.
func (r *Retrier) ResetStats() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = RetryStats{}
}

func (r *Retrier) recordSuccess(attempt int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attempt == 0 {
		r.stats.SuccessfulFirstTry++
	} else {
		r.stats.RetriedRequests++
		r.stats.TotalRetryAttempts += uint64(attempt)
	}
}

func (r *Retrier) recordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.FailedRequests++
}

func (r *Retrier) finish(method, path string, start time.Time, attempts int, result *Result, err error) {
	status := 0
	if result != nil {
		status = result.Status
	}
	r.telemetry.OnRequestEnd(core.RequestEndEvent{
		Method:   method,
		Path:     path,
		Start:    start,
		End:      time.Now(),
		Attempts: attempts,
		Status:   status,
		Err:      err,
	})
}
