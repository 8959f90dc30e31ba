package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Info is quota metadata parsed from response headers. Nil pointer
// fields mean the corresponding header was absent; a zero RetryAfter
// means no retry-after directive was sent.
type Info struct {
	Remaining  *int
	Limit      *int
	Reset      *time.Time
	RetryAfter time.Duration
}

// ParseHeaders extracts quota metadata from response headers. All
// headers are optional and malformed values are treated as absent.
func ParseHeaders(h http.Header) Info {
	var info Info

	if v, err := strconv.Atoi(h.Get("x-ratelimit-remaining")); err == nil {
		info.Remaining = &v
	}
	if v, err := strconv.Atoi(h.Get("x-ratelimit-limit")); err == nil {
		info.Limit = &v
	}
	if epoch, err := strconv.ParseInt(h.Get("x-ratelimit-reset"), 10, 64); err == nil {
		t := time.Unix(epoch, 0)
		info.Reset = &t
	}
	if secs, err := strconv.Atoi(h.Get("retry-after")); err == nil && secs >= 0 {
		info.RetryAfter = time.Duration(secs) * time.Second
	}

	return info
}

// IsApproachingLimit reports whether the consumed share of the window
// has reached threshold. It is false when either counter is missing.
func (i Info) IsApproachingLimit(threshold float64) bool {
	if i.Remaining == nil || i.Limit == nil || *i.Limit == 0 {
		return false
	}
	usage := 1 - float64(*i.Remaining)/float64(*i.Limit)
	return usage >= threshold
}

// RecommendedDelay derives a pause before the next request. An explicit
// retry-after directive wins; otherwise, near the limit, the time until
// the window resets, capped at one minute. Zero means no recommendation.
func (i Info) RecommendedDelay() time.Duration {
	if i.RetryAfter > 0 {
		return i.RetryAfter
	}

	if i.IsApproachingLimit(0.8) && i.Reset != nil {
		if d := time.Until(*i.Reset); d > 0 {
			return min(d, time.Minute)
		}
	}
	return 0
}
