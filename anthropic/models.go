package anthropic

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/calder-ai/anthropic-go/core"
	"github.com/calder-ai/anthropic-go/transport"
)

const modelsPath = "/v1/models"

// ModelsService lists and retrieves available models.
type ModelsService struct {
	client *Client
}

// ListParams pages through a list endpoint. Zero values are omitted.
type ListParams struct {
	Limit    int
	AfterID  string
	BeforeID string
}

func (p ListParams) encode() string {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.AfterID != "" {
		q.Set("after_id", p.AfterID)
	}
	if p.BeforeID != "" {
		q.Set("before_id", p.BeforeID)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ModelList is one page of models.
type ModelList struct {
	Data    []core.Model `json:"data"`
	HasMore bool         `json:"has_more"`
	FirstID string       `json:"first_id,omitempty"`
	LastID  string       `json:"last_id,omitempty"`
}

// List returns one page of available models.
func (s *ModelsService) List(ctx context.Context, params ListParams) (*ModelList, error) {
	path := modelsPath + params.encode()

	var out ModelList
	_, err := s.client.retrier.Do(ctx, http.MethodGet, modelsPath, func(ctx context.Context) (*transport.Result, error) {
		out = ModelList{}
		return s.client.transport.Do(ctx, http.MethodGet, path, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAll pages through every available model.
func (s *ModelsService) ListAll(ctx context.Context) ([]core.Model, error) {
	var models []core.Model
	params := ListParams{Limit: 100}

	for {
		page, err := s.List(ctx, params)
		if err != nil {
			return nil, err
		}
		models = append(models, page.Data...)
		if !page.HasMore || page.LastID == "" {
			return models, nil
		}
		params.AfterID = page.LastID
	}
}

// Get retrieves a single model by id.
func (s *ModelsService) Get(ctx context.Context, modelID string) (*core.Model, error) {
	path := modelsPath + "/" + url.PathEscape(modelID)

	var out core.Model
	_, err := s.client.retrier.Do(ctx, http.MethodGet, path, func(ctx context.Context) (*transport.Result, error) {
		out = core.Model{}
		return s.client.transport.Do(ctx, http.MethodGet, path, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
