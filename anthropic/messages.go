package anthropic

import (
	"context"
	"net/http"

	"github.com/calder-ai/anthropic-go/core"
	"github.com/calder-ai/anthropic-go/stream"
	"github.com/calder-ai/anthropic-go/transport"
)

const (
	messagesPath    = "/v1/messages"
	countTokensPath = "/v1/messages/count_tokens"
)

// MessagesService creates model responses.
type MessagesService struct {
	client *Client
}

// Create sends a message request and waits for the full response.
func (s *MessagesService) Create(ctx context.Context, req core.MessageRequest) (*core.MessageResponse, error) {
	req.Stream = false

	var out core.MessageResponse
	_, err := s.client.retrier.Do(ctx, http.MethodPost, messagesPath, func(ctx context.Context) (*transport.Result, error) {
		out = core.MessageResponse{}
		return s.client.transport.Do(ctx, http.MethodPost, messagesPath, req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateStream sends a message request and returns the event stream.
// Only the connection phase is retried; once the stream is open it
// belongs to the caller.
func (s *MessagesService) CreateStream(ctx context.Context, req core.MessageRequest) (*stream.Stream, error) {
	req.Stream = true

	resp, err := s.client.retrier.DoStream(ctx, http.MethodPost, messagesPath, func(ctx context.Context) (*http.Response, error) {
		return s.client.transport.DoStream(ctx, http.MethodPost, messagesPath, req)
	})
	if err != nil {
		return nil, err
	}
	return stream.New(resp)
}

// CountTokens reports how many input tokens a prospective request uses.
func (s *MessagesService) CountTokens(ctx context.Context, req core.TokenCountRequest) (*core.TokenCountResponse, error) {
	var out core.TokenCountResponse
	_, err := s.client.retrier.Do(ctx, http.MethodPost, countTokensPath, func(ctx context.Context) (*transport.Result, error) {
		out = core.TokenCountResponse{}
		return s.client.transport.Do(ctx, http.MethodPost, countTokensPath, req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
