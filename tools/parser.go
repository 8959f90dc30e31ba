package tools

import (
	"encoding/json"
	"fmt"

	"github.com/calder-ai/anthropic-go/core"
)

// ParseInput parses a tool_use block's input into a typed struct.
//
// Example:
//
//	type WeatherInput struct {
//	    Location string `json:"location"`
//	    Unit     string `json:"unit"`
//	}
//
//	input, err := tools.ParseInput[WeatherInput](block)
//	if err != nil {
//	    return nil, err
//	}
//	// Use input.Location, input.Unit
func ParseInput[T any](block core.ContentBlock) (*T, error) {
	if block.Type != core.BlockToolUse {
		return nil, fmt.Errorf("block type %q is not tool_use", block.Type)
	}

	var result T
	if err := json.Unmarshal(block.Input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
