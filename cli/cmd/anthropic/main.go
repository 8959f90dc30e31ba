// Anthropic CLI - command-line interface for the Anthropic API.
package main

import (
	"errors"
	"os"

	"github.com/calder-ai/anthropic-go/cli/commands"
)

// ExitCoder is an interface for errors that have an exit code.
type ExitCoder interface {
	ExitCode() int
}

func main() {
	if err := commands.NewApp().Execute(); err != nil {
		var ec ExitCoder
		if errors.As(err, &ec) {
			os.Exit(ec.ExitCode())
		}
		os.Exit(1)
	}
}
