package commands

import (
	"errors"

	"github.com/calder-ai/anthropic-go/core"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitAPI        = 2
	ExitNetwork    = 3
)

var errNoAPIKey = errors.New("no API key: set ANTHROPIC_API_KEY or run 'anthropic configure'")

// exitError wraps an error with a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// ExitCode returns the process exit code for this error.
func (e *exitError) ExitCode() int { return e.code }

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// classifyError maps SDK error kinds to exit codes so scripts can
// distinguish bad input from transient transport failures.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}

	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrConfig):
		return exitWithCode(ExitValidation, err)
	case errors.Is(err, core.ErrNetwork), errors.Is(err, core.ErrTimeout):
		return exitWithCode(ExitNetwork, err)
	default:
		return exitWithCode(ExitAPI, err)
	}
}
