// Package core defines the shared data model for the SDK: message and
// content types, token usage accounting, the error taxonomy used for retry
// classification, retry backoff policies, and the telemetry hook interface.
//
// Higher layers build on these primitives: package stream assembles
// server-sent events into core.MessageResponse values, package transport
// executes requests with retry and rate limiting, and package anthropic
// exposes the REST bindings.
package core
