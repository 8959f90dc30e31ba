package logging

import (
	"log/slog"

	"github.com/calder-ai/anthropic-go/core"
)

// TelemetryHook logs request lifecycle events through an slog.Logger.
// Request starts are logged at Debug, completions at Debug on success
// and Warn on failure.
type TelemetryHook struct {
	logger *slog.Logger
}

// NewTelemetryHook wraps logger in a core.TelemetryHook. A nil logger
// uses the package default.
func NewTelemetryHook(logger *slog.Logger) *TelemetryHook {
	if logger == nil {
		logger = New()
	}
	return &TelemetryHook{logger: logger}
}

// OnRequestStart logs the beginning of a request.
func (h *TelemetryHook) OnRequestStart(e core.RequestStartEvent) {
	h.logger.Debug("request start",
		"method", e.Method,
		"path", e.Path,
	)
}

// OnRequestEnd logs the outcome of a request including retries.
func (h *TelemetryHook) OnRequestEnd(e core.RequestEndEvent) {
	attrs := []any{
		"method", e.Method,
		"path", e.Path,
		"status", e.Status,
		"attempts", e.Attempts,
		"duration", e.Duration(),
	}
	if e.Err != nil {
		h.logger.Warn("request failed", append(attrs, "error", e.Err)...)
		return
	}
	h.logger.Debug("request complete", attrs...)
}
