package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for classification. Wrap these (or APIError) so callers
// can dispatch with errors.Is.
var (
	// ErrNetwork marks connection-level transport failures.
	ErrNetwork = errors.New("network error")
	// ErrTimeout marks requests that exceeded their deadline.
	ErrTimeout = errors.New("request timeout")
	// ErrRateLimited marks requests rejected by rate limiting, either
	// locally or by the server.
	ErrRateLimited = errors.New("rate limited")
	// ErrStream marks malformed streaming protocol data.
	ErrStream = errors.New("stream error")
	// ErrDecode marks JSON encode/decode failures outside the stream.
	ErrDecode = errors.New("decode error")
	// ErrValidation marks invalid request input. Never retried.
	ErrValidation = errors.New("invalid request")
	// ErrConfig marks invalid client configuration. Never retried.
	ErrConfig = errors.New("configuration error")
	// ErrAuth marks authentication failures. Never retried.
	ErrAuth = errors.New("authentication error")
)

// APIError is an error response from the API with full context.
type APIError struct {
	Status    int    // HTTP status code
	Code      string // API error type, e.g. "overloaded_error"
	Message   string
	RequestID string
	Err       error // classification sentinel
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api error: %s (status=%d, code=%s, request_id=%s)",
			e.Message, e.Status, e.Code, e.RequestID)
	}
	return fmt.Sprintf("api error: %s (status=%d, code=%s)", e.Message, e.Status, e.Code)
}

// Unwrap returns the classification sentinel for errors.Is chains.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates an APIError classified by its HTTP status.
func NewAPIError(status int, code, message, requestID string) *APIError {
	return &APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Err:       sentinelForStatus(status),
	}
}

// sentinelForStatus maps an HTTP status to a classification sentinel.
func sentinelForStatus(status int) error {
	switch {
	case status == 401 || status == 403:
		return ErrAuth
	case status == 429:
		return ErrRateLimited
	case status >= 400 && status < 500:
		return ErrValidation
	default:
		return nil
	}
}

// apiErrorBody is the JSON error envelope returned by the API.
type apiErrorBody struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseAPIError builds an APIError from an HTTP error response body.
// Unparseable bodies fall back to the raw text.
func ParseAPIError(status int, body []byte, requestID string) *APIError {
	var envelope apiErrorBody
	_ = json.Unmarshal(body, &envelope)

	message := envelope.Error.Message
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(status)
	}

	code := envelope.Error.Type
	if code == "" {
		code = "unknown_error"
	}

	return NewAPIError(status, code, message, requestID)
}

// StreamError creates an ErrStream-classified error with a detail message.
func StreamError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStream, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether err should trigger a retry attempt.
// Connection and timeout failures, rate limiting, and the transient API
// statuses 429/500/502/503/504 are retryable; validation, configuration,
// authentication, and malformed-input failures are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited) {
		return true
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConfig) ||
		errors.Is(err, ErrAuth) || errors.Is(err, ErrDecode) || errors.Is(err, ErrStream) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return RetryableStatus(apiErr.Status)
	}
	return false
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
