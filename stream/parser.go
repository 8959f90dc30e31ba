package stream

import (
	"strconv"
	"strings"

	"github.com/calder-ai/anthropic-go/core"
)

// Parser assembles line-oriented protocol frames into typed events.
// Feed it one line at a time; a blank line finalizes the frame in
// progress. A Parser tracks at most one frame at a time and is not
// safe for concurrent use.
type Parser struct {
	frame *frame
}

// frame is one in-progress event: field lines accumulated since the
// last blank-line boundary.
type frame struct {
	eventType string
	data      []string
	id        string
	retryMS   int
	hasRetry  bool
}

// NewParser creates an empty Parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseLine consumes one line of the stream. It returns a non-nil Event
// when the line completes a frame with a recognized event type, and nil
// otherwise. A malformed JSON payload for a recognized type is an error.
func (p *Parser) ParseLine(line string) (Event, error) {
	line = strings.TrimSpace(line)

	// A blank line finalizes the current frame.
	if line == "" {
		return p.finishFrame()
	}

	// Comment line.
	if strings.HasPrefix(line, ":") {
		return nil, nil
	}

	if p.frame == nil {
		p.frame = &frame{}
	}

	field, value, found := strings.Cut(line, ":")
	if !found {
		// A line without a colon counts as an extra data fragment.
		p.frame.data = append(p.frame.data, line)
		return nil, nil
	}

	field = strings.TrimSpace(field)
	value = strings.TrimSpace(value)

	switch field {
	case "event":
		p.frame.eventType = value
	case "data":
		p.frame.data = append(p.frame.data, value)
	case "id":
		p.frame.id = value
	case "retry":
		// Reconnection hint in milliseconds. Malformed values are
		// silently dropped.
		if ms, err := strconv.Atoi(value); err == nil {
			p.frame.retryMS = ms
			p.frame.hasRetry = true
		}
	default:
		// Unknown field, ignore.
	}
	return nil, nil
}

// finishFrame converts the accumulated frame into a typed event.
// Frames with no data, and frames with an unrecognized event type, yield
// no event.
func (p *Parser) finishFrame() (Event, error) {
	f := p.frame
	p.frame = nil
	if f == nil {
		return nil, nil
	}

	// Multiple data lines join with newlines before decoding.
	data := strings.Join(f.data, "\n")
	if data == "" {
		return nil, nil
	}

	eventType := f.eventType
	if eventType == "" {
		eventType = "message"
	}

	decode, ok := decoders[eventType]
	if !ok {
		// Unknown event type, skip for forward compatibility.
		return nil, nil
	}

	ev, err := decode([]byte(data))
	if err != nil {
		return nil, core.StreamError("failed to parse %s event: %v", eventType, err)
	}
	return ev, nil
}
