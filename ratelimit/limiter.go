// Package ratelimit paces outgoing API calls with a token bucket, and
// optionally adapts to server-reported quota headers.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrLimitExceeded is returned by TryAcquire when no token is free.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Config describes a token bucket: MaxRequests per Window, with an
// optional Burst allowance distinct from the steady-state rate.
type Config struct {
	MaxRequests int
	Window      time.Duration
	Burst       int
}

// DefaultConfig allows 60 requests per minute with a burst of 10.
func DefaultConfig() Config {
	return Config{MaxRequests: 60, Window: time.Minute, Burst: 10}
}

// Stats is a snapshot of limiter activity.
type Stats struct {
	// TotalAcquires counts every successful acquisition.
	TotalAcquires uint64
	// DelayedAcquires counts acquisitions that had to wait.
	DelayedAcquires uint64
	// TotalWait is the cumulative time spent waiting.
	TotalWait time.Duration
	// MaxWait is the longest single wait.
	MaxWait time.Duration
}

// AvgWait returns the average wait per delayed acquisition.
func (s Stats) AvgWait() time.Duration {
	if s.DelayedAcquires == 0 {
		return 0
	}
	return s.TotalWait / time.Duration(s.DelayedAcquires)
}

// DelayedPercent returns the share of acquisitions that waited, in percent.
func (s Stats) DelayedPercent() float64 {
	if s.TotalAcquires == 0 {
		return 0
	}
	return float64(s.DelayedAcquires) / float64(s.TotalAcquires) * 100
}

// Limiter paces calls with a token bucket. It is safe for concurrent
// use; the statistics lock is held only across the counter update.
type Limiter struct {
	bucket *rate.Limiter
	cfg    Config

	mu    sync.Mutex
	stats Stats
}

// New creates a Limiter from cfg. Nonpositive fields fall back to a
// one-request-per-second bucket with no extra burst.
func New(cfg Config) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	interval := cfg.Window / time.Duration(cfg.MaxRequests)
	return &Limiter{
		bucket: rate.NewLimiter(rate.Every(interval), cfg.Burst),
		cfg:    cfg,
	}
}

// WithDefaults creates a Limiter with DefaultConfig.
func WithDefaults() *Limiter {
	return New(DefaultConfig())
}

// PerSecond creates a Limiter allowing n requests per second.
func PerSecond(n int) *Limiter {
	return New(Config{MaxRequests: n, Window: time.Second})
}

// PerMinute creates a Limiter allowing n requests per minute.
func PerMinute(n int) *Limiter {
	return New(Config{MaxRequests: n, Window: time.Minute})
}

// PerHour creates a Limiter allowing n requests per hour.
func PerHour(n int) *Limiter {
	return New(Config{MaxRequests: n, Window: time.Hour})
}

// Acquire blocks until a token is available, recording any wait time.
// It fails only when ctx is done first.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := l.bucket.Wait(ctx); err != nil {
		return err
	}
	l.recordWait(time.Since(start))
	return nil
}

// TryAcquire takes a token without blocking. It returns
// ErrLimitExceeded immediately when no token is free.
func (l *Limiter) TryAcquire() error {
	if !l.bucket.Allow() {
		return ErrLimitExceeded
	}
	l.recordWait(0)
	return nil
}

// TimeUntilReady estimates the wait before the next token frees up.
// Zero means a token is available now. The estimate never consumes a
// token: canceling a reservation whose act time has already passed
// does not refund it, so a ready bucket is answered from Tokens.
func (l *Limiter) TimeUntilReady() time.Duration {
	if l.bucket.Tokens() >= 1 {
		return 0
	}
	reservation := l.bucket.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return delay
}

// Config returns the configuration the limiter was built with.
func (l *Limiter) Config() Config {
	return l.cfg
}

// Stats returns a snapshot of limiter activity.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// ResetStats clears all counters.
func (l *Limiter) ResetStats() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats = Stats{}
}

func (l *Limiter) recordWait(wait time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stats.TotalAcquires++
	if wait > 0 {
		l.stats.DelayedAcquires++
		l.stats.TotalWait += wait
		if wait > l.stats.MaxWait {
			l.stats.MaxWait = wait
		}
	}
}
