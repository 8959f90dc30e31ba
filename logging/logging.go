// Package logging builds slog loggers for the SDK and CLI. The pretty
// handler is meant for terminals, the JSON handler for services.
package logging

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level  slog.Level
	json   bool
	writer io.Writer
}

// Option configures a logger created with New.
type Option func(*config)

// WithDebug sets the log level to Debug when true, Info otherwise.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		} else {
			c.level = slog.LevelInfo
		}
	}
}

// WithJSON enables slog's JSON handler for structured service logs
// instead of the colorized terminal handler.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter overrides the output writer. Defaults to os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writer = w
	}
}

// New creates a *slog.Logger. Without options it logs at Info level to
// stderr using the charmbracelet/log handler.
func New(opts ...Option) *slog.Logger {
	c := config{
		level:  slog.LevelInfo,
		writer: os.Stderr,
	}
	for _, opt := range opts {
		opt(&c)
	}

	if c.json {
		return slog.New(slog.NewJSONHandler(c.writer, &slog.HandlerOptions{Level: c.level}))
	}

	handler := charmlog.NewWithOptions(c.writer, charmlog.Options{
		ReportTimestamp: true,
		Level:           charmLevel(c.level),
	})
	return slog.New(handler)
}

func charmLevel(level slog.Level) charmlog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmlog.DebugLevel
	case level <= slog.LevelInfo:
		return charmlog.InfoLevel
	case level <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}
