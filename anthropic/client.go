// Package anthropic is the entry point for the API client. It wires
// the transport, retry, and pacing layers together and exposes one
// service per API resource.
package anthropic

import (
	"fmt"
	"os"

	"github.com/calder-ai/anthropic-go/core"
	"github.com/calder-ai/anthropic-go/transport"
)

// Client talks to the API. It is safe for concurrent use; all services
// share one transport and one retrier, so retry and rate-limit
// statistics aggregate across them.
type Client struct {
	transport *transport.Client
	retrier   *transport.Retrier

	// Messages creates model responses and counts tokens.
	Messages *MessagesService
	// Models lists and retrieves available models.
	Models *ModelsService
	// Batches manages asynchronous message batches.
	Batches *BatchesService
}

// New creates a Client with the given API key.
func New(apiKey string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	tc, err := transport.NewClient(transport.Config{
		BaseURL:    o.baseURL,
		APIKey:     core.NewSecret(apiKey),
		APIVersion: o.apiVersion,
		UserAgent:  o.userAgent,
		HTTPClient: o.httpClient,
	})
	if err != nil {
		return nil, err
	}

	pacer := o.pacer
	if pacer == nil && o.adaptive != nil {
		pacer = o.adaptive
	}

	c := &Client{
		transport: tc,
		retrier: transport.NewRetrier(transport.RetrierConfig{
			Policy:     o.policy,
			Pacer:      pacer,
			Adaptive:   o.adaptive,
			SmartDelay: o.smartDelay,
			Telemetry:  o.telemetry,
		}),
	}
	c.Messages = &MessagesService{client: c}
	c.Models = &ModelsService{client: c}
	c.Batches = &BatchesService{client: c}
	return c, nil
}

// FromEnv creates a Client using the ANTHROPIC_API_KEY environment
// variable.
func FromEnv(opts ...Option) (*Client, error) {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", core.ErrConfig)
	}
	return New(key, opts...)
}

// RetryStats returns the shared retry statistics for this client.
func (c *Client) RetryStats() transport.RetryStats {
	return c.retrier.Stats()
}
