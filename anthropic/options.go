package anthropic

import (
	"net/http"

	"github.com/calder-ai/anthropic-go/core"
	"github.com/calder-ai/anthropic-go/ratelimit"
	"github.com/calder-ai/anthropic-go/transport"
)

type options struct {
	baseURL    string
	apiVersion string
	userAgent  string
	httpClient *http.Client
	policy     core.RetryPolicy
	pacer      transport.Pacer
	adaptive   *ratelimit.Adaptive
	smartDelay bool
	telemetry  core.TelemetryHook
}

func defaultOptions() *options {
	return &options{}
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL overrides the API origin, e.g. for a proxy.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithAPIVersion overrides the anthropic-version header.
func WithAPIVersion(version string) Option {
	return func(o *options) { o.apiVersion = version }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithHTTPClient supplies a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}

// WithRetryPolicy replaces the default backoff policy.
func WithRetryPolicy(p core.RetryPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithRateLimiter paces every attempt through the given limiter.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(o *options) {
		if l != nil {
			o.pacer = l
		}
	}
}

// WithAdaptiveRateLimiter paces attempts through the adaptive limiter
// and feeds it quota headers from every response.
func WithAdaptiveRateLimiter(a *ratelimit.Adaptive) Option {
	return func(o *options) {
		if a != nil {
			o.adaptive = a
		}
	}
}

// WithSmartRetryDelay prefers server-directed delays (retry-after and
// quota-derived recommendations) over the computed backoff.
func WithSmartRetryDelay() Option {
	return func(o *options) { o.smartDelay = true }
}

// WithTelemetry sets the hook observing request lifecycle events.
func WithTelemetry(h core.TelemetryHook) Option {
	return func(o *options) {
		if h != nil {
			o.telemetry = h
		}
	}
}
