package core

import "time"

// TelemetryHook receives notifications about request lifecycle events.
// Implementations can use this for logging, metrics, or tracing.
//
// Event types carry operational metadata only. API keys, prompt content,
// and response content are never included, so telemetry data is safe to
// log or export.
type TelemetryHook interface {
	// OnRequestStart is called when an API request begins.
	OnRequestStart(e RequestStartEvent)

	// OnRequestEnd is called when an API request completes, after all
	// retry attempts.
	OnRequestEnd(e RequestEndEvent)
}

// RequestStartEvent contains metadata about a starting request.
type RequestStartEvent struct {
	Method string    // HTTP method
	Path   string    // API path, e.g. "/v1/messages"
	Start  time.Time // when the request started
}

// RequestEndEvent contains metadata about a completed request.
type RequestEndEvent struct {
	Method   string
	Path     string
	Start    time.Time
	End      time.Time
	Attempts int   // total attempts including the first
	Status   int   // final HTTP status, 0 if the request never completed
	Err      error // nil on success
}

// Duration returns the elapsed wall time for the request including retries.
func (e RequestEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// NoopTelemetryHook is a no-op TelemetryHook, used as the default.
type NoopTelemetryHook struct{}

// OnRequestStart does nothing.
func (NoopTelemetryHook) OnRequestStart(RequestStartEvent) {}

// OnRequestEnd does nothing.
func (NoopTelemetryHook) OnRequestEnd(RequestEndEvent) {}
