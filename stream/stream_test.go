package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/calder-ai/anthropic-go/core"
)

// sseServer serves the given frames as a streaming response.
func sseServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			io.WriteString(w, frame)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func openStream(t *testing.T, srv *httptest.Server) *Stream {
	t.Helper()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	s, err := New(resp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sseFrame(eventType, data string) string {
	return "event: " + eventType + "\ndata: " + data + "\n\n"
}

const messageStartFrame = `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-20250514","usage":{"input_tokens":10,"output_tokens":0}}}`

func TestStreamRecvOrder(t *testing.T) {
	srv := sseServer(t,
		sseFrame("message_start", messageStartFrame),
		sseFrame("ping", `{"type":"ping"}`),
		sseFrame("message_stop", `{"type":"message_stop"}`),
	)
	s := openStream(t, srv)
	ctx := context.Background()

	wantTypes := []string{"MessageStartEvent", "PingEvent", "MessageStopEvent"}
	for i, want := range wantTypes {
		ev, err := s.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv %d: %v", i, err)
		}
		if got := typeName(ev); got != want {
			t.Errorf("event %d = %s, want %s", i, got, want)
		}
	}

	if _, err := s.Recv(ctx); err != io.EOF {
		t.Errorf("Recv after end = %v, want io.EOF", err)
	}
}

func typeName(ev Event) string {
	switch ev.(type) {
	case MessageStartEvent:
		return "MessageStartEvent"
	case ContentBlockStartEvent:
		return "ContentBlockStartEvent"
	case ContentBlockDeltaEvent:
		return "ContentBlockDeltaEvent"
	case ContentBlockStopEvent:
		return "ContentBlockStopEvent"
	case MessageDeltaEvent:
		return "MessageDeltaEvent"
	case MessageStopEvent:
		return "MessageStopEvent"
	case PingEvent:
		return "PingEvent"
	case ErrorEvent:
		return "ErrorEvent"
	}
	return "unknown"
}

func TestCollectText(t *testing.T) {
	srv := sseServer(t,
		sseFrame("message_start", messageStartFrame),
		sseFrame("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		sseFrame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"A"}}`),
		sseFrame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"B"}}`),
		sseFrame("content_block_stop", `{"type":"content_block_stop","index":0}`),
		sseFrame("message_stop", `{"type":"message_stop"}`),
	)
	s := openStream(t, srv)

	text, err := s.CollectText(context.Background())
	if err != nil {
		t.Fatalf("CollectText: %v", err)
	}
	if text != "AB" {
		t.Errorf("text = %q, want \"AB\"", text)
	}
}

func TestCollectMessage(t *testing.T) {
	srv := sseServer(t,
		sseFrame("message_start", messageStartFrame),
		sseFrame("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		sseFrame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`),
		sseFrame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" world"}}`),
		sseFrame("content_block_stop", `{"type":"content_block_stop","index":0}`),
		sseFrame("message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`),
		sseFrame("message_stop", `{"type":"message_stop"}`),
	)
	s := openStream(t, srv)

	msg, err := s.CollectMessage(context.Background())
	if err != nil {
		t.Fatalf("CollectMessage: %v", err)
	}

	if got := msg.Text(); got != "Hello world" {
		t.Errorf("Text() = %q, want \"Hello world\"", got)
	}
	if msg.StopReason != core.StopEndTurn {
		t.Errorf("StopReason = %q, want end_turn", msg.StopReason)
	}
	if msg.Usage.OutputTokens != 2 {
		t.Errorf("OutputTokens = %d, want 2", msg.Usage.OutputTokens)
	}
	if msg.Usage.InputTokens != 10 {
		t.Errorf("InputTokens = %d, want 10 (kept from message_start)", msg.Usage.InputTokens)
	}
}

func TestCollectMessageToolUse(t *testing.T) {
	srv := sseServer(t,
		sseFrame("message_start", messageStartFrame),
		sseFrame("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"tu_1","name":"calc","input":{}}}`),
		sseFrame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"x\":"}}`),
		sseFrame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"1}"}}`),
		sseFrame("content_block_stop", `{"type":"content_block_stop","index":0}`),
		sseFrame("message_stop", `{"type":"message_stop"}`),
	)
	s := openStream(t, srv)

	msg, err := s.CollectMessage(context.Background())
	if err != nil {
		t.Fatalf("CollectMessage: %v", err)
	}

	if len(msg.Content) != 1 {
		t.Fatalf("content blocks = %d, want 1", len(msg.Content))
	}
	block := msg.Content[0]
	if block.Type != core.BlockToolUse || block.Name != "calc" {
		t.Errorf("block = %+v, want tool_use 'calc'", block)
	}
	if string(block.Input) != `{"x":1}` {
		t.Errorf("Input = %s, want reassembled '{\"x\":1}'", block.Input)
	}
}

func TestCollectMessageSparseIndices(t *testing.T) {
	// A delta arriving for a higher index than any started block must
	// extend placeholders without panicking; unstarted placeholders are
	// compacted away.
	srv := sseServer(t,
		sseFrame("message_start", messageStartFrame),
		sseFrame("content_block_start", `{"type":"content_block_start","index":2,"content_block":{"type":"text","text":""}}`),
		sseFrame("content_block_delta", `{"type":"content_block_delta","index":2,"delta":{"type":"text_delta","text":"later"}}`),
		sseFrame("content_block_delta", `{"type":"content_block_delta","index":5,"delta":{"type":"text_delta","text":"orphan"}}`),
		sseFrame("message_stop", `{"type":"message_stop"}`),
	)
	s := openStream(t, srv)

	msg, err := s.CollectMessage(context.Background())
	if err != nil {
		t.Fatalf("CollectMessage: %v", err)
	}
	if len(msg.Content) != 1 {
		t.Fatalf("content blocks = %d, want 1 (placeholders compacted)", len(msg.Content))
	}
	if msg.Content[0].Text != "later" {
		t.Errorf("text = %q, want 'later'", msg.Content[0].Text)
	}
}

func TestCollectMessageNegativeIndex(t *testing.T) {
	// A negative index never has a block to land on; it must surface as
	// a stream error, not a crash.
	cases := []struct {
		name  string
		event string
		data  string
	}{
		{
			name:  "block start",
			event: "content_block_start",
			data:  `{"type":"content_block_start","index":-1,"content_block":{"type":"text","text":""}}`,
		},
		{
			name:  "block delta",
			event: "content_block_delta",
			data:  `{"type":"content_block_delta","index":-1,"delta":{"type":"text_delta","text":"x"}}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := sseServer(t,
				sseFrame("message_start", messageStartFrame),
				sseFrame(tc.event, tc.data),
			)
			s := openStream(t, srv)

			_, err := s.CollectMessage(context.Background())
			if !errors.Is(err, core.ErrStream) {
				t.Errorf("CollectMessage = %v, want ErrStream for negative index", err)
			}
		})
	}
}

func TestCollectMessageNoMessageStart(t *testing.T) {
	srv := sseServer(t,
		sseFrame("ping", `{"type":"ping"}`),
	)
	s := openStream(t, srv)

	_, err := s.CollectMessage(context.Background())
	if err == nil {
		t.Fatal("CollectMessage should fail without message_start")
	}
	if !errors.Is(err, core.ErrStream) {
		t.Errorf("error = %v, want ErrStream classification", err)
	}
	if !strings.Contains(err.Error(), "no message_start") {
		t.Errorf("error = %q, should name the missing event", err)
	}
}

func TestCollectMessageAbortsOnErrorEvent(t *testing.T) {
	srv := sseServer(t,
		sseFrame("message_start", messageStartFrame),
		sseFrame("error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`),
	)
	s := openStream(t, srv)

	_, err := s.CollectMessage(context.Background())
	if err == nil {
		t.Fatal("CollectMessage should abort on an error event")
	}
	if !errors.Is(err, core.ErrStream) {
		t.Errorf("error = %v, want ErrStream classification", err)
	}
	if !strings.Contains(err.Error(), "overloaded_error") {
		t.Errorf("error = %q, should carry the server detail", err)
	}
}

func TestCollectTextTruncatedStream(t *testing.T) {
	// Early transport close ends the sequence silently; collected text
	// so far is returned without error.
	srv := sseServer(t,
		sseFrame("message_start", messageStartFrame),
		sseFrame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`),
	)
	s := openStream(t, srv)

	text, err := s.CollectText(context.Background())
	if err != nil {
		t.Fatalf("CollectText: %v", err)
	}
	if text != "Hel" {
		t.Errorf("text = %q, want \"Hel\"", text)
	}
}

func TestStreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("request-id", "req_9")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"Too many requests"}}`)
	}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}

	_, err = New(resp)
	if err == nil {
		t.Fatal("New should fail on a non-success status")
	}

	var apiErr *core.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *core.APIError", err)
	}
	if apiErr.Status != 429 || apiErr.Code != "rate_limit_error" {
		t.Errorf("apiErr = %+v, want status 429 rate_limit_error", apiErr)
	}
	if !errors.Is(err, core.ErrRateLimited) {
		t.Error("429 should classify as ErrRateLimited")
	}
	if apiErr.RequestID != "req_9" {
		t.Errorf("RequestID = %q, want req_9", apiErr.RequestID)
	}
}

func TestStreamParseErrorHaltsLoop(t *testing.T) {
	srv := sseServer(t,
		sseFrame("ping", `{"type":"ping"}`),
		"event: message_start\ndata: {not json\n\n",
		sseFrame("ping", `{"type":"ping"}`),
	)
	s := openStream(t, srv)
	ctx := context.Background()

	if _, err := s.Recv(ctx); err != nil {
		t.Fatalf("first Recv: %v", err)
	}

	_, err := s.Recv(ctx)
	if !errors.Is(err, core.ErrStream) {
		t.Fatalf("second Recv = %v, want ErrStream", err)
	}

	// The loop halts after forwarding the failure; nothing follows.
	if _, err := s.Recv(ctx); err != io.EOF {
		t.Errorf("Recv after parse failure = %v, want io.EOF", err)
	}
}

func TestDroppedConsumerStopsReadLoop(t *testing.T) {
	pr, pw := io.Pipe()
	resp := &http.Response{StatusCode: http.StatusOK, Body: pr, Header: http.Header{}}

	s, err := New(resp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	writeErr := make(chan error, 1)
	go func() {
		ping := sseFrame("ping", `{"type":"ping"}`)
		for {
			if _, err := io.WriteString(pw, ping); err != nil {
				writeErr <- err
				return
			}
		}
	}()

	if _, err := s.Recv(context.Background()); err != nil {
		t.Fatalf("Recv: %v", err)
	}
	s.Close()

	// The read loop must notice the closed stream and release the body,
	// which surfaces as a write failure on the pipe.
	select {
	case <-writeErr:
	case <-time.After(5 * time.Second):
		t.Fatal("read loop did not stop after the consumer closed the stream")
	}
}

func TestRecvContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	resp := &http.Response{StatusCode: http.StatusOK, Body: pr, Header: http.Header{}}

	s, err := New(resp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := s.Recv(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Recv = %v, want context.DeadlineExceeded", err)
	}
}
