package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/calder-ai/anthropic-go/core"
)

// queueSize bounds the handoff queue between the read loop and the
// consumer. A full queue suspends the read loop until the consumer
// drains it.
const queueSize = 100

// item is one delivery to the consumer: an event or a failure.
type item struct {
	event Event
	err   error
}

// Stream delivers typed events from a streaming response. A background
// goroutine owns the response body and the parser; consumers poll Recv
// or use one of the collect helpers. Events arrive in wire order.
type Stream struct {
	items chan item
	done  chan struct{}
	once  sync.Once
}

// New validates the response and starts the background read loop.
// A non-2xx response is read in full and returned as a *core.APIError;
// no Stream is created in that case.
func New(resp *http.Response) (*Stream, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, core.ParseAPIError(resp.StatusCode, body, resp.Header.Get("request-id"))
	}

	s := &Stream{
		items: make(chan item, queueSize),
		done:  make(chan struct{}),
	}
	go s.readLoop(resp.Body)
	return s, nil
}

// readLoop owns the byte buffer and the parser. It reads chunks,
// extracts complete lines (stripping a trailing carriage return), feeds
// them to the parser, and pushes completed events onto the queue. The
// loop halts on the first parse failure, after forwarding it.
func (s *Stream) readLoop(body io.ReadCloser) {
	defer body.Close()
	defer close(s.items)

	parser := NewParser()
	buffer := make([]byte, 0, 8192)
	chunk := make([]byte, 4096)

	for {
		n, err := body.Read(chunk)
		if n > 0 {
			buffer = append(buffer, chunk[:n]...)

			for {
				nl := bytes.IndexByte(buffer, '\n')
				if nl < 0 {
					break
				}
				line := string(bytes.TrimSuffix(buffer[:nl], []byte{'\r'}))
				buffer = buffer[nl+1:]

				event, perr := parser.ParseLine(line)
				if perr != nil {
					s.push(item{err: perr})
					return
				}
				if event != nil && !s.push(item{event: event}) {
					return
				}
			}
		}
		if err != nil {
			// EOF ends the loop without synthesizing a terminal event.
			if err != io.EOF {
				s.push(item{err: fmt.Errorf("%w: reading stream: %v", core.ErrNetwork, err)})
			}
			return
		}
	}
}

// push hands an item to the consumer. It returns false if the consumer
// closed the stream, which is a clean shutdown signal, not an error.
func (s *Stream) push(it item) bool {
	select {
	case s.items <- it:
		return true
	case <-s.done:
		return false
	}
}

// Recv returns the next event in wire order. It returns io.EOF once the
// stream has ended and all queued events have been consumed.
func (s *Stream) Recv(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case it, ok := <-s.items:
		if !ok {
			return nil, io.EOF
		}
		return it.event, it.err
	}
}

// Close releases the stream. The background goroutine notices on its
// next send and stops reading. Safe to call more than once.
func (s *Stream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
