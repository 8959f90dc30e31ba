// Package stream consumes the line-oriented event protocol used by
// streaming message responses. A Parser turns raw lines into typed
// events, and a Stream runs the parser in a background goroutine over a
// response body, handing events to the consumer through a bounded queue.
package stream
