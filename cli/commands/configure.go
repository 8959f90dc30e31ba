package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/calder-ai/anthropic-go/config"
)

func (a *App) newConfigureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Store API credentials and defaults",
		Long: `Store the API key and default settings in the config file.

The key is prompted without echo when running in a terminal. The file is
written with owner-only permissions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigure()
		},
	}

	cmd.Flags().StringVar(&a.configureModel, "default-model", "", "default model for chat")
	cmd.Flags().StringVar(&a.configureBaseURL, "base-url", "", "override the API base URL")

	return cmd
}

func (a *App) runConfigure() error {
	apiKey, err := a.readAPIKey()
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}
	if apiKey == "" {
		return exitWithCode(ExitValidation, fmt.Errorf("API key cannot be empty"))
	}

	path := a.cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	// Preserve settings already in the file.
	cfg, err := a.loadConfig(path)
	if err != nil {
		return err
	}
	cfg.APIKey = apiKey
	if a.configureModel != "" {
		cfg.DefaultModel = a.configureModel
	}
	if a.configureBaseURL != "" {
		cfg.BaseURL = a.configureBaseURL
	}

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(a.stdout, "Configuration saved to %s\n", path)
	return nil
}

// readAPIKey prompts for the key, suppressing echo when stdin is a
// terminal and falling back to a plain line read for piped input.
func (a *App) readAPIKey() (string, error) {
	fmt.Fprint(a.stdout, "Enter API key: ")

	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		keyBytes, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		fmt.Fprintln(a.stdout)
		return strings.TrimSpace(string(keyBytes)), nil
	}

	reader := bufio.NewReader(a.stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}
