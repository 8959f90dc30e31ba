// Package transport implements the HTTP layer shared by all API
// services: request construction, error normalization, and retry with
// classified backoff and pacing.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/calder-ai/anthropic-go/core"
	"github.com/calder-ai/anthropic-go/ratelimit"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultAPIVersion = "2023-06-01"
	defaultUserAgent  = "anthropic-go"
	defaultTimeout    = 10 * time.Minute
)

// Config configures the HTTP transport.
type Config struct {
	BaseURL    string
	APIKey     core.Secret
	APIVersion string
	UserAgent  string
	HTTPClient *http.Client
}

// Result carries response metadata for one attempt alongside whatever
// the caller decoded. It is non-nil whenever a response was received,
// including error-status responses.
type Result struct {
	Status    int
	RequestID string
	RateLimit ratelimit.Info
}

// Client performs single HTTP attempts against the API. Retry and
// pacing live in Retrier; Client knows nothing about either.
type Client struct {
	baseURL    string
	apiKey     core.Secret
	apiVersion string
	userAgent  string
	httpClient *http.Client
}

// NewClient validates cfg and builds a transport client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey.IsEmpty() {
		return nil, fmt.Errorf("%w: api key is required", core.ErrConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		userAgent:  cfg.UserAgent,
		httpClient: cfg.HTTPClient,
	}, nil
}

// BaseURL returns the configured API origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs one JSON request attempt. A non-nil body is marshaled as
// JSON; a non-nil out receives the decoded success response. Error
// statuses come back as a *core.APIError with the Result still populated
// so callers can read rate-limit metadata.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) (*Result, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal request: %v", core.ErrDecode, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", core.ErrNetwork, err)
	}

	result := &Result{
		Status:    resp.StatusCode,
		RequestID: resp.Header.Get("request-id"),
		RateLimit: ratelimit.ParseHeaders(resp.Header),
	}

	if resp.StatusCode >= 400 {
		return result, core.ParseAPIError(resp.StatusCode, respBody, result.RequestID)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return result, fmt.Errorf("%w: unmarshal response: %v", core.ErrDecode, err)
		}
	}
	return result, nil
}

// DoStream performs one streaming request attempt and returns the raw
// response for the stream assembler, which validates the status itself.
func (c *Client) DoStream(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal request: %v", core.ErrDecode, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportError(ctx, err)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", core.ErrValidation, err)
	}

	req.Header.Set("x-api-key", c.apiKey.Expose())
	req.Header.Set("anthropic-version", c.apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// wrapTransportError classifies a round-trip failure. Caller-initiated
// cancellation surfaces unchanged so retry logic leaves it alone.
func wrapTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", core.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", core.ErrNetwork, err)
}
