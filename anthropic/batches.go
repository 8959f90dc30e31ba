package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/calder-ai/anthropic-go/core"
	"github.com/calder-ai/anthropic-go/transport"
)

const batchesPath = "/v1/messages/batches"

// BatchesService manages asynchronous message batches.
type BatchesService struct {
	client *Client
}

// BatchRequest is one entry of a batch: a message request paired with a
// caller-chosen id for matching up results.
type BatchRequest struct {
	CustomID string              `json:"custom_id"`
	Params   core.MessageRequest `json:"params"`
}

// NewBatchRequest pairs params with a generated custom id.
func NewBatchRequest(params core.MessageRequest) BatchRequest {
	return BatchRequest{CustomID: uuid.NewString(), Params: params}
}

// RequestCounts breaks down batch entries by processing outcome.
type RequestCounts struct {
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Errored    int `json:"errored"`
	Canceled   int `json:"canceled"`
	Expired    int `json:"expired"`
}

// MessageBatch describes an asynchronous batch job.
type MessageBatch struct {
	ID                string        `json:"id"`
	Type              string        `json:"type"`
	ProcessingStatus  string        `json:"processing_status"`
	RequestCounts     RequestCounts `json:"request_counts"`
	CreatedAt         time.Time     `json:"created_at"`
	ExpiresAt         time.Time     `json:"expires_at"`
	EndedAt           *time.Time    `json:"ended_at,omitempty"`
	CancelInitiatedAt *time.Time    `json:"cancel_initiated_at,omitempty"`
	ResultsURL        string        `json:"results_url,omitempty"`
}

// Done reports whether the batch has finished processing.
func (b *MessageBatch) Done() bool {
	return b.ProcessingStatus == "ended"
}

// BatchList is one page of batches.
type BatchList struct {
	Data    []MessageBatch `json:"data"`
	HasMore bool           `json:"has_more"`
	FirstID string         `json:"first_id,omitempty"`
	LastID  string         `json:"last_id,omitempty"`
}

type batchCreateBody struct {
	Requests []BatchRequest `json:"requests"`
}

// Create submits a batch. Entries without a custom id get a generated
// one; duplicate custom ids are rejected before anything is sent.
func (s *BatchesService) Create(ctx context.Context, requests []BatchRequest) (*MessageBatch, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: batch needs at least one request", core.ErrValidation)
	}

	seen := make(map[string]bool, len(requests))
	for i := range requests {
		if requests[i].CustomID == "" {
			requests[i].CustomID = uuid.NewString()
		}
		if seen[requests[i].CustomID] {
			return nil, fmt.Errorf("%w: duplicate custom_id %q", core.ErrValidation, requests[i].CustomID)
		}
		seen[requests[i].CustomID] = true
	}

	var out MessageBatch
	_, err := s.client.retrier.Do(ctx, http.MethodPost, batchesPath, func(ctx context.Context) (*transport.Result, error) {
		out = MessageBatch{}
		return s.client.transport.Do(ctx, http.MethodPost, batchesPath, batchCreateBody{Requests: requests}, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Get retrieves a batch by id.
func (s *BatchesService) Get(ctx context.Context, batchID string) (*MessageBatch, error) {
	path := batchesPath + "/" + url.PathEscape(batchID)

	var out MessageBatch
	_, err := s.client.retrier.Do(ctx, http.MethodGet, path, func(ctx context.Context) (*transport.Result, error) {
		out = MessageBatch{}
		return s.client.transport.Do(ctx, http.MethodGet, path, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns one page of batches.
func (s *BatchesService) List(ctx context.Context, params ListParams) (*BatchList, error) {
	path := batchesPath + params.encode()

	var out BatchList
	_, err := s.client.retrier.Do(ctx, http.MethodGet, batchesPath, func(ctx context.Context) (*transport.Result, error) {
		out = BatchList{}
		return s.client.transport.Do(ctx, http.MethodGet, path, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel asks the API to stop processing a batch. Entries already in
// flight may still complete.
func (s *BatchesService) Cancel(ctx context.Context, batchID string) (*MessageBatch, error) {
	path := batchesPath + "/" + url.PathEscape(batchID) + "/cancel"

	var out MessageBatch
	_, err := s.client.retrier.Do(ctx, http.MethodPost, path, func(ctx context.Context) (*transport.Result, error) {
		out = MessageBatch{}
		return s.client.transport.Do(ctx, http.MethodPost, path, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForCompletion polls the batch until it ends, the deadline passes,
// or ctx is canceled.
func (s *BatchesService) WaitForCompletion(ctx context.Context, batchID string, pollInterval time.Duration) (*MessageBatch, error) {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		batch, err := s.Get(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if batch.Done() {
			return batch, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
