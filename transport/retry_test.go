package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/calder-ai/anthropic-go/core"
	"github.com/calder-ai/anthropic-go/ratelimit"
)

func fastPolicy(maxRetries int) core.RetryPolicy {
	return core.NewRetryPolicy(core.RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		Jitter:     0,
	})
}

func TestRetrier503TwiceThenSuccess(t *testing.T) {
	r := NewRetrier(RetrierConfig{Policy: fastPolicy(3)})

	attempts := 0
	result, err := r.Do(context.Background(), "POST", "/v1/messages", func(ctx context.Context) (*Result, error) {
		attempts++
		if attempts <= 2 {
			res := &Result{Status: 503}
			return res, core.NewAPIError(503, "overloaded_error", "Overloaded", "")
		}
		return &Result{Status: 200}, nil
	})

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if result.Status != 200 {
		t.Errorf("Status = %d, want 200", result.Status)
	}

	stats := r.Stats()
	if stats.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", stats.TotalRequests)
	}
	if stats.RetriedRequests != 1 {
		t.Errorf("RetriedRequests = %d, want 1", stats.RetriedRequests)
	}
	if stats.TotalRetryAttempts != 2 {
		t.Errorf("TotalRetryAttempts = %d, want 2", stats.TotalRetryAttempts)
	}
	if stats.SuccessfulFirstTry != 0 {
		t.Errorf("SuccessfulFirstTry = %d, want 0", stats.SuccessfulFirstTry)
	}
	if stats.TotalRetryDelay <= 0 {
		t.Errorf("TotalRetryDelay = %v, want > 0", stats.TotalRetryDelay)
	}
}

func TestRetrier400SingleAttempt(t *testing.T) {
	r := NewRetrier(RetrierConfig{Policy: fastPolicy(3)})

	wantErr := core.NewAPIError(400, "invalid_request_error", "max_tokens required", "")
	attempts := 0
	_, err := r.Do(context.Background(), "POST", "/v1/messages", func(ctx context.Context) (*Result, error) {
		attempts++
		return &Result{Status: 400}, wantErr
	})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on 400)", attempts)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want the original failure surfaced unchanged", err)
	}

	stats := r.Stats()
	if stats.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", stats.FailedRequests)
	}
}

func TestRetrierFirstTrySuccess(t *testing.T) {
	r := NewRetrier(RetrierConfig{Policy: fastPolicy(3)})

	_, err := r.Do(context.Background(), "GET", "/v1/models", func(ctx context.Context) (*Result, error) {
		return &Result{Status: 200}, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	stats := r.Stats()
	if stats.SuccessfulFirstTry != 1 || stats.RetriedRequests != 0 {
		t.Errorf("stats = %+v, want one first-try success", stats)
	}
}

func TestRetrierExhaustion(t *testing.T) {
	r := NewRetrier(RetrierConfig{Policy: fastPolicy(2)})

	attempts := 0
	_, err := r.Do(context.Background(), "GET", "/v1/models", func(ctx context.Context) (*Result, error) {
		attempts++
		return &Result{Status: 503}, core.NewAPIError(503, "overloaded_error", "Overloaded", "")
	})

	if err == nil {
		t.Fatal("Do should fail after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", attempts)
	}
	if stats := r.Stats(); stats.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", stats.FailedRequests)
	}
}

func TestRetrierSmartDelayPrefersServerDirective(t *testing.T) {
	// Base delay of 2s would dominate the test; the server-directed 20ms
	// retry-after must win.
	r := NewRetrier(RetrierConfig{
		Policy: core.NewRetryPolicy(core.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  2 * time.Second,
			Jitter:     0,
		}),
		SmartDelay: true,
	})

	attempts := 0
	start := time.Now()
	_, err := r.Do(context.Background(), "POST", "/v1/messages", func(ctx context.Context) (*Result, error) {
		attempts++
		if attempts == 1 {
			res := &Result{
				Status:    429,
				RateLimit: ratelimit.Info{RetryAfter: 20 * time.Millisecond},
			}
			return res, core.NewAPIError(429, "rate_limit_error", "slow down", "")
		}
		return &Result{Status: 200}, nil
	})

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("elapsed = %v, smart delay should have used the 20ms directive", elapsed)
	}
}

type countingPacer struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPacer) Acquire(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return nil
}

func TestRetrierPacesEveryAttempt(t *testing.T) {
	pacer := &countingPacer{}
	r := NewRetrier(RetrierConfig{Policy: fastPolicy(3), Pacer: pacer})

	attempts := 0
	_, err := r.Do(context.Background(), "GET", "/v1/models", func(ctx context.Context) (*Result, error) {
		attempts++
		if attempts == 1 {
			return &Result{Status: 503}, core.NewAPIError(503, "overloaded_error", "Overloaded", "")
		}
		return &Result{Status: 200}, nil
	})

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if pacer.calls != 2 {
		t.Errorf("pacer calls = %d, want 2 (one per attempt)", pacer.calls)
	}
}

func TestRetrierFeedsAdaptiveLimiter(t *testing.T) {
	adaptive := ratelimit.NewAdaptive(ratelimit.Config{MaxRequests: 60, Window: time.Minute, Burst: 10})
	r := NewRetrier(RetrierConfig{Policy: fastPolicy(3), Adaptive: adaptive})

	remaining, limit := 80, 120
	_, err := r.Do(context.Background(), "GET", "/v1/models", func(ctx context.Context) (*Result, error) {
		return &Result{
			Status:    200,
			RateLimit: ratelimit.Info{Remaining: &remaining, Limit: &limit},
		}, nil
	})

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := adaptive.CurrentLimit(); got != 120 {
		t.Errorf("CurrentLimit = %d, want learned 120", got)
	}
}

type recordingHook struct {
	mu     sync.Mutex
	starts []core.RequestStartEvent
	ends   []core.RequestEndEvent
}

func (h *recordingHook) OnRequestStart(e core.RequestStartEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts = append(h.starts, e)
}

func (h *recordingHook) OnRequestEnd(e core.RequestEndEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ends = append(h.ends, e)
}

func TestRetrierTelemetry(t *testing.T) {
	hook := &recordingHook{}
	r := NewRetrier(RetrierConfig{Policy: fastPolicy(3), Telemetry: hook})

	attempts := 0
	_, err := r.Do(context.Background(), "POST", "/v1/messages", func(ctx context.Context) (*Result, error) {
		attempts++
		if attempts == 1 {
			return &Result{Status: 503}, core.NewAPIError(503, "overloaded_error", "Overloaded", "")
		}
		return &Result{Status: 200}, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if len(hook.starts) != 1 || len(hook.ends) != 1 {
		t.Fatalf("hook calls = %d starts, %d ends, want 1 each", len(hook.starts), len(hook.ends))
	}
	end := hook.ends[0]
	if end.Method != "POST" || end.Path != "/v1/messages" {
		t.Errorf("end event = %+v, want POST /v1/messages", end)
	}
	if end.Attempts != 2 || end.Status != 200 || end.Err != nil {
		t.Errorf("end event = %+v, want 2 attempts, status 200, nil error", end)
	}
}

func TestRetrierConcurrentRequests(t *testing.T) {
	r := NewRetrier(RetrierConfig{Policy: fastPolicy(3)})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Do(context.Background(), "GET", "/v1/models", func(ctx context.Context) (*Result, error) {
				return &Result{Status: 200}, nil
			})
		}()
	}
	wg.Wait()

	if stats := r.Stats(); stats.TotalRequests != 20 || stats.SuccessfulFirstTry != 20 {
		t.Errorf("stats = %+v, want 20 first-try successes", stats)
	}
}

func TestRetryStatsDerived(t *testing.T) {
	s := RetryStats{
		TotalRequests:      10,
		SuccessfulFirstTry: 6,
		RetriedRequests:    2,
		TotalRetryAttempts: 6,
		FailedRequests:     2,
	}

	if got := s.SuccessRate(); got != 0.8 {
		t.Errorf("SuccessRate() = %v, want 0.8", got)
	}
	if got := s.RetryRate(); got != 0.2 {
		t.Errorf("RetryRate() = %v, want 0.2", got)
	}
	if got := s.AverageRetries(); got != 3 {
		t.Errorf("AverageRetries() = %v, want 3", got)
	}

	var empty RetryStats
	if empty.SuccessRate() != 0 || empty.RetryRate() != 0 || empty.AverageRetries() != 0 {
		t.Error("empty stats should derive zeros")
	}
}
