package stream

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/calder-ai/anthropic-go/core"
)

// CollectMessage drains the stream and assembles the complete message.
// It fails if the stream ends before a MessageStart arrives, and aborts
// on the first Error event. The stream is closed when it returns.
func (s *Stream) CollectMessage(ctx context.Context) (*core.MessageResponse, error) {
	defer s.Close()

	var message *core.MessageResponse
	var blocks []*core.ContentBlock
	jsonBuffers := make(map[int]*strings.Builder)

loop:
	for {
		event, err := s.Recv(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch ev := event.(type) {
		case MessageStartEvent:
			msg := ev.Message
			message = &msg

		case ContentBlockStartEvent:
			if ev.Index < 0 {
				return nil, core.StreamError("negative content block index %d", ev.Index)
			}
			blocks = extendBlocks(blocks, ev.Index)
			block := ev.ContentBlock
			blocks[ev.Index] = &block

		case ContentBlockDeltaEvent:
			if ev.Index < 0 {
				return nil, core.StreamError("negative content block index %d", ev.Index)
			}
			blocks = extendBlocks(blocks, ev.Index)
			applyDelta(blocks[ev.Index], ev.Delta)
			if ev.Delta.PartialJSON != "" {
				buf := jsonBuffers[ev.Index]
				if buf == nil {
					buf = &strings.Builder{}
					jsonBuffers[ev.Index] = buf
				}
				buf.WriteString(ev.Delta.PartialJSON)
			}

		case ContentBlockStopEvent:
			if buf := jsonBuffers[ev.Index]; buf != nil {
				delete(jsonBuffers, ev.Index)
				if ev.Index >= 0 && ev.Index < len(blocks) && blocks[ev.Index] != nil {
					finishInputJSON(blocks[ev.Index], buf.String())
				}
			}

		case MessageDeltaEvent:
			if message != nil {
				message.Usage.Merge(ev.Usage)
				if ev.Delta.StopReason != "" {
					message.StopReason = ev.Delta.StopReason
				}
				if ev.Delta.StopSequence != "" {
					message.StopSequence = ev.Delta.StopSequence
				}
			}

		case MessageStopEvent:
			break loop

		case PingEvent:
			// Keep-alive, ignore.

		case ErrorEvent:
			return nil, core.StreamError("stream error: %s", ev)
		}
	}

	if message == nil {
		return nil, core.StreamError("no message_start event received")
	}

	// Compact placeholders into final order.
	content := make([]core.ContentBlock, 0, len(blocks))
	for _, block := range blocks {
		if block != nil {
			content = append(content, *block)
		}
	}
	message.Content = content
	return message, nil
}

// CollectText drains the stream and concatenates content-delta text
// fragments, ignoring indices and usage. The stream is closed when it
// returns.
func (s *Stream) CollectText(ctx context.Context) (string, error) {
	defer s.Close()

	var text strings.Builder

loop:
	for {
		event, err := s.Recv(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch ev := event.(type) {
		case ContentBlockDeltaEvent:
			text.WriteString(ev.Delta.Text)
		case MessageStopEvent:
			break loop
		case ErrorEvent:
			return "", core.StreamError("stream error: %s", ev)
		}
	}

	return text.String(), nil
}

// extendBlocks grows the placeholder list so index is addressable.
func extendBlocks(blocks []*core.ContentBlock, index int) []*core.ContentBlock {
	for len(blocks) <= index {
		blocks = append(blocks, nil)
	}
	return blocks
}

// applyDelta appends incremental fragments onto a started block. A
// delta targeting a never-started index has no block to land on and is
// dropped.
func applyDelta(block *core.ContentBlock, delta core.BlockDelta) {
	if block == nil {
		return
	}
	if delta.Text != "" && block.Type == core.BlockText {
		block.Text += delta.Text
	}
	if delta.Thinking != "" && block.Type == core.BlockThinking {
		block.Thinking += delta.Thinking
	}
	if delta.Signature != "" && block.Type == core.BlockThinking {
		block.Signature += delta.Signature
	}
}

// finishInputJSON installs accumulated tool input on block stop.
// Fragments that never formed valid JSON are preserved as a JSON string
// rather than discarded.
func finishInputJSON(block *core.ContentBlock, partial string) {
	raw := json.RawMessage(partial)
	if !json.Valid(raw) {
		quoted, err := json.Marshal(partial)
		if err != nil {
			return
		}
		raw = quoted
	}

	switch block.Type {
	case core.BlockToolUse:
		block.Input = raw
	case core.BlockToolResult:
		block.Content = string(raw)
	}
}
