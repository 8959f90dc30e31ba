package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ToolCallFunc is the function signature for tool execution.
// Middleware wraps this function to add behavior.
type ToolCallFunc func(ctx context.Context, input json.RawMessage) (any, error)

// Middleware wraps a ToolCallFunc to add behavior before and/or after
// execution. Middleware functions receive the next handler in the chain
// and return a new handler.
type Middleware func(next ToolCallFunc) ToolCallFunc

// Chain combines multiple middleware into a single middleware.
// Middleware are executed in the order provided (first middleware is outermost).
func Chain(middlewares ...Middleware) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		// Apply in reverse order so first middleware is outermost
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// ApplyMiddleware wraps a tool with middleware.
// Returns a new tool that executes middleware around the original.
func ApplyMiddleware(tool Tool, middlewares ...Middleware) Tool {
	if len(middlewares) == 0 {
		return tool
	}

	chain := Chain(middlewares...)
	return &wrappedTool{
		tool:    tool,
		wrapped: chain(tool.Call),
	}
}

// wrappedTool is a tool with middleware applied.
type wrappedTool struct {
	tool    Tool
	wrapped ToolCallFunc
}

func (w *wrappedTool) Name() string                 { return w.tool.Name() }
func (w *wrappedTool) Description() string          { return w.tool.Description() }
func (w *wrappedTool) InputSchema() json.RawMessage { return w.tool.InputSchema() }

func (w *wrappedTool) Call(ctx context.Context, input json.RawMessage) (any, error) {
	return w.wrapped(withToolName(ctx, w.tool.Name()), input)
}

type toolNameKey struct{}

func withToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

// ToolNameFromContext returns the name of the tool being called, for
// middleware that wants to report it. Empty when the call did not go
// through ApplyMiddleware.
func ToolNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(toolNameKey{}).(string)
	return name
}

// WithLogging creates middleware that logs tool calls and their outcome.
func WithLogging(logger *slog.Logger) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, input json.RawMessage) (any, error) {
			start := time.Now()
			result, err := next(ctx, input)

			attrs := []any{"tool", ToolNameFromContext(ctx), "duration", time.Since(start)}
			if err != nil {
				logger.Warn("tool call failed", append(attrs, "error", err)...)
				return nil, err
			}
			logger.Debug("tool call complete", attrs...)
			return result, nil
		}
	}
}

// WithTimeout creates middleware that bounds tool execution time.
func WithTimeout(d time.Duration) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, input json.RawMessage) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, input)
		}
	}
}

// WithValidation creates middleware that rejects input that is not
// valid JSON before the tool sees it.
func WithValidation() Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, input json.RawMessage) (any, error) {
			if len(input) > 0 && !json.Valid(input) {
				return nil, fmt.Errorf("tool input is not valid JSON")
			}
			return next(ctx, input)
		}
	}
}
