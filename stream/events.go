package stream

import (
	"encoding/json"

	"github.com/calder-ai/anthropic-go/core"
)

// Event is a single typed protocol event produced by the Parser.
// The variant set is closed; events with an unrecognized wire type are
// skipped rather than surfaced.
type Event interface {
	isEvent()
}

// MessageStartEvent opens a streamed message and carries its header,
// including the initial usage snapshot.
type MessageStartEvent struct {
	Message core.MessageResponse `json:"message"`
}

// ContentBlockStartEvent opens the content block at Index. The block
// carried here is an empty placeholder to be filled by deltas.
type ContentBlockStartEvent struct {
	Index        int               `json:"index"`
	ContentBlock core.ContentBlock `json:"content_block"`
}

// ContentBlockDeltaEvent carries an incremental update for the content
// block at Index.
type ContentBlockDeltaEvent struct {
	Index int             `json:"index"`
	Delta core.BlockDelta `json:"delta"`
}

// ContentBlockStopEvent closes the content block at Index.
type ContentBlockStopEvent struct {
	Index int `json:"index"`
}

// MessageDeltaEvent carries top-level message changes plus a cumulative
// usage snapshot.
type MessageDeltaEvent struct {
	Delta core.MessageDelta `json:"delta"`
	Usage core.Usage        `json:"usage"`
}

// MessageStopEvent marks the end of a streamed message.
type MessageStopEvent struct{}

// PingEvent is a keep-alive with no payload.
type PingEvent struct{}

// ErrorEvent is a server-reported stream failure. The payload is an
// open field map so unrecognized error shapes survive intact.
type ErrorEvent struct {
	Fields map[string]json.RawMessage
}

// UnmarshalJSON captures the whole error payload as a field map.
func (e *ErrorEvent) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &e.Fields)
}

// String renders the error payload for diagnostics.
func (e ErrorEvent) String() string {
	data, err := json.Marshal(e.Fields)
	if err != nil || len(data) == 0 {
		return "unknown stream error"
	}
	return string(data)
}

func (MessageStartEvent) isEvent()      {}
func (ContentBlockStartEvent) isEvent() {}
func (ContentBlockDeltaEvent) isEvent() {}
func (ContentBlockStopEvent) isEvent()  {}
func (MessageDeltaEvent) isEvent()      {}
func (MessageStopEvent) isEvent()       {}
func (PingEvent) isEvent()              {}
func (ErrorEvent) isEvent()             {}

// decoders maps wire event types to their decode routine. Types absent
// from this map are skipped for forward compatibility.
var decoders = map[string]func([]byte) (Event, error){
	"message_start":       decodeAs[MessageStartEvent],
	"content_block_start": decodeAs[ContentBlockStartEvent],
	"content_block_delta": decodeAs[ContentBlockDeltaEvent],
	"content_block_stop":  decodeAs[ContentBlockStopEvent],
	"message_delta":       decodeAs[MessageDeltaEvent],
	"message_stop":        decodeAs[MessageStopEvent],
	"ping":                decodeAs[PingEvent],
	"error":               decodeAs[ErrorEvent],
}

func decodeAs[E Event](data []byte) (Event, error) {
	var ev E
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}
