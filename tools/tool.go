// Package tools provides model-callable tool definitions, a registry
// for executing tool_use blocks, and middleware for cross-cutting
// behavior around tool calls.
package tools

import (
	"context"
	"encoding/json"

	"github.com/calder-ai/anthropic-go/core"
)

// Tool defines the interface for model-callable tools.
// Tools provide a JSON Schema for their input and a Call method for
// execution.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this
	// tool does. It is provided to the model to help it decide when to
	// use the tool.
	Description() string

	// InputSchema returns a JSON Schema object describing the tool's
	// input. Example: {"type":"object","properties":{"location":{"type":"string"}}}
	InputSchema() json.RawMessage

	// Call executes the tool with the given input. The input parameter
	// contains the raw JSON produced by the model. Returns the tool's
	// result or an error if execution fails.
	Call(ctx context.Context, input json.RawMessage) (any, error)
}

// Func adapts a plain function into a Tool.
type Func struct {
	name        string
	description string
	schema      json.RawMessage
	fn          ToolCallFunc
}

// NewFunc creates a Tool from a function and its schema.
func NewFunc(name, description string, schema json.RawMessage, fn ToolCallFunc) *Func {
	return &Func{name: name, description: description, schema: schema, fn: fn}
}

func (f *Func) Name() string                 { return f.name }
func (f *Func) Description() string          { return f.description }
func (f *Func) InputSchema() json.RawMessage { return f.schema }

func (f *Func) Call(ctx context.Context, input json.RawMessage) (any, error) {
	return f.fn(ctx, input)
}

// Definition converts a Tool into the wire representation sent with a
// message request.
func Definition(t Tool) core.Tool {
	return core.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
	}
}

// Definitions converts several tools for use with MessageRequest.Tools.
func Definitions(ts ...Tool) []core.Tool {
	defs := make([]core.Tool, len(ts))
	for i, t := range ts {
		defs[i] = Definition(t)
	}
	return defs
}
