package anthropic

import (
	"context"
	"fmt"

	"github.com/calder-ai/anthropic-go/core"
	"github.com/calder-ai/anthropic-go/stream"
)

// defaultMaxTokens is used when the builder is not given a limit.
const defaultMaxTokens = 1024

// MessageBuilder is a fluent API for assembling a message request.
// It is not safe for concurrent use.
type MessageBuilder struct {
	req core.MessageRequest
}

// NewMessage starts a builder for the given model.
func NewMessage(model string) *MessageBuilder {
	return &MessageBuilder{req: core.MessageRequest{Model: model}}
}

// MaxTokens sets the generation limit.
func (b *MessageBuilder) MaxTokens(n int) *MessageBuilder {
	b.req.MaxTokens = n
	return b
}

// System sets the system prompt.
func (b *MessageBuilder) System(prompt string) *MessageBuilder {
	b.req.System = prompt
	return b
}

// User appends a user message with a single text block.
func (b *MessageBuilder) User(text string) *MessageBuilder {
	b.req.Messages = append(b.req.Messages, core.UserMessage(text))
	return b
}

// Assistant appends an assistant message with a single text block.
func (b *MessageBuilder) Assistant(text string) *MessageBuilder {
	b.req.Messages = append(b.req.Messages, core.AssistantMessage(text))
	return b
}

// Message appends an arbitrary message.
func (b *MessageBuilder) Message(msg core.Message) *MessageBuilder {
	b.req.Messages = append(b.req.Messages, msg)
	return b
}

// ToolResult appends a user message carrying a tool result.
func (b *MessageBuilder) ToolResult(toolUseID, content string) *MessageBuilder {
	b.req.Messages = append(b.req.Messages, core.Message{
		Role:    core.RoleUser,
		Content: []core.ContentBlock{core.ToolResultBlock(toolUseID, content)},
	})
	return b
}

// Temperature sets the sampling temperature, clamped to [0, 1].
func (b *MessageBuilder) Temperature(v float32) *MessageBuilder {
	v = min(max(v, 0), 1)
	b.req.Temperature = &v
	return b
}

// TopP sets the nucleus sampling parameter.
func (b *MessageBuilder) TopP(v float32) *MessageBuilder {
	b.req.TopP = &v
	return b
}

// TopK limits sampling to the k most likely tokens.
func (b *MessageBuilder) TopK(k int) *MessageBuilder {
	b.req.TopK = &k
	return b
}

// StopSequences sets custom stop sequences.
func (b *MessageBuilder) StopSequences(stops ...string) *MessageBuilder {
	b.req.StopSequences = stops
	return b
}

// Tools sets the tools available to the model.
func (b *MessageBuilder) Tools(tools ...core.Tool) *MessageBuilder {
	b.req.Tools = tools
	return b
}

// ToolChoice controls how the model selects among tools.
func (b *MessageBuilder) ToolChoice(choice core.ToolChoice) *MessageBuilder {
	b.req.ToolChoice = &choice
	return b
}

// RequireTool forces the model to call the named tool.
func (b *MessageBuilder) RequireTool(name string) *MessageBuilder {
	b.req.ToolChoice = &core.ToolChoice{Type: "tool", Name: name}
	return b
}

// Thinking enables extended thinking with the given token budget.
func (b *MessageBuilder) Thinking(budgetTokens int) *MessageBuilder {
	b.req.Thinking = &core.ThinkingConfig{Type: "enabled", BudgetTokens: budgetTokens}
	return b
}

// ServiceTier requests a specific processing tier.
func (b *MessageBuilder) ServiceTier(tier string) *MessageBuilder {
	b.req.ServiceTier = tier
	return b
}

// Build validates the request and returns it.
func (b *MessageBuilder) Build() (core.MessageRequest, error) {
	req := b.req
	if req.Model == "" {
		return core.MessageRequest{}, fmt.Errorf("%w: model is required", core.ErrValidation)
	}
	if len(req.Messages) == 0 {
		return core.MessageRequest{}, fmt.Errorf("%w: at least one message is required", core.ErrValidation)
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	if req.Thinking != nil && req.Thinking.BudgetTokens >= req.MaxTokens {
		return core.MessageRequest{}, fmt.Errorf("%w: thinking budget must be below max_tokens", core.ErrValidation)
	}
	return req, nil
}

// Create builds the request and sends it through the client.
func (b *MessageBuilder) Create(ctx context.Context, c *Client) (*core.MessageResponse, error) {
	req, err := b.Build()
	if err != nil {
		return nil, err
	}
	return c.Messages.Create(ctx, req)
}

// Stream builds the request and opens an event stream through the client.
func (b *MessageBuilder) Stream(ctx context.Context, c *Client) (*stream.Stream, error) {
	req, err := b.Build()
	if err != nil {
		return nil, err
	}
	return c.Messages.CreateStream(ctx, req)
}
