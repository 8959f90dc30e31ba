package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/calder-ai/anthropic-go/core"
)

// ErrDuplicateTool is returned when attempting to register a tool with
// a name that is already registered.
var ErrDuplicateTool = errors.New("tool already registered")

// Registry manages a collection of tools indexed by name.
// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
// Returns ErrDuplicateTool if a tool with the same name is already registered.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return errors.New("tool cannot be nil")
	}

	name := t.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return ErrDuplicateTool
	}

	r.tools[name] = t
	return nil
}

// Get retrieves a tool by name.
// Returns the tool and true if found, or nil and false if not found.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools.
// The returned slice is a copy and safe to modify.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	return result
}

// Definitions returns the wire representations of all registered tools,
// for use with MessageRequest.Tools.
func (r *Registry) Definitions() []core.Tool {
	return Definitions(r.List()...)
}

// Execute finds a tool by name and calls it with the given input.
// Returns an error if the tool is not found or if execution fails.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (any, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("tool %q not found", name)
	}
	return tool.Call(ctx, input)
}

// Results executes every tool_use block in a response and assembles the
// user message carrying the results, ready to append to the
// conversation. Execution failures become is_error results rather than
// aborting the turn, so the model can react to individual failures.
//
// The second return value is false when the response contains no
// tool_use blocks.
func (r *Registry) Results(ctx context.Context, resp *core.MessageResponse) (core.Message, bool) {
	var blocks []core.ContentBlock

	for _, block := range resp.Content {
		if block.Type != core.BlockToolUse {
			continue
		}

		result := core.ContentBlock{
			Type:      core.BlockToolResult,
			ToolUseID: block.ID,
		}

		out, err := r.Execute(ctx, block.Name, block.Input)
		if err != nil {
			result.Content = err.Error()
			result.IsError = true
		} else if content, err := encodeResult(out); err != nil {
			result.Content = err.Error()
			result.IsError = true
		} else {
			result.Content = content
		}

		blocks = append(blocks, result)
	}

	if len(blocks) == 0 {
		return core.Message{}, false
	}
	return core.Message{Role: core.RoleUser, Content: blocks}, true
}

// encodeResult turns a tool's return value into result text. Strings
// pass through as-is; everything else is JSON-encoded.
func encodeResult(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(data), nil
}
