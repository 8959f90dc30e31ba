package ratelimit

import (
	"sync"
	"time"
)

// defaultThreshold is the consumed-quota share past which the advisory
// callback fires.
const defaultThreshold = 0.8

// Adaptive wraps a Limiter and learns the server-reported request limit
// from response headers. The learned limit is advisory telemetry: it is
// surfaced through CurrentLimit and the OnApproachingLimit callback but
// does not resize the underlying bucket.
type Adaptive struct {
	*Limiter

	mu           sync.Mutex
	threshold    float64
	onApproach   func(remaining, limit int)
	currentLimit int
	lastReset    time.Time
}

// NewAdaptive creates an adaptive limiter over a bucket built from cfg.
func NewAdaptive(cfg Config) *Adaptive {
	base := New(cfg)
	return &Adaptive{
		Limiter:      base,
		threshold:    defaultThreshold,
		currentLimit: base.Config().MaxRequests,
	}
}

// SetThreshold adjusts the advisory threshold, clamped to [0, 1].
func (a *Adaptive) SetThreshold(threshold float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.threshold = min(max(threshold, 0), 1)
}

// OnApproachingLimit registers a callback invoked when consumed quota
// crosses the threshold. The callback runs on the caller's goroutine.
func (a *Adaptive) OnApproachingLimit(fn func(remaining, limit int)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onApproach = fn
}

// UpdateFromHeaders folds server-reported quota counters into the
// learned limit. It is a no-op unless both remaining and limit counters
// are present.
func (a *Adaptive) UpdateFromHeaders(info Info) {
	if info.Remaining == nil || info.Limit == nil || *info.Limit <= 0 {
		return
	}
	remaining, limit := *info.Remaining, *info.Limit

	a.mu.Lock()
	if limit != a.currentLimit {
		a.currentLimit = limit
	}
	if info.Reset != nil {
		a.lastReset = time.Now()
	}
	threshold := a.threshold
	fn := a.onApproach
	a.mu.Unlock()

	usage := 1 - float64(remaining)/float64(limit)
	if usage >= threshold && fn != nil {
		fn(remaining, limit)
	}
}

// CurrentLimit returns the most recently learned request limit.
func (a *Adaptive) CurrentLimit() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentLimit
}
