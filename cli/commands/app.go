// Package commands implements the CLI command structure using Cobra.
package commands

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/calder-ai/anthropic-go/anthropic"
	"github.com/calder-ai/anthropic-go/config"
	"github.com/calder-ai/anthropic-go/core"
	"github.com/calder-ai/anthropic-go/logging"
	"github.com/calder-ai/anthropic-go/ratelimit"
)

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// ClientFactory creates an API client from the effective CLI config.
type ClientFactory func(cfg *config.Config, telemetry core.TelemetryHook) (*anthropic.Client, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig ConfigLoader
	newClient  ClientFactory
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	logger     *slog.Logger

	cfgFile    string
	model      string
	jsonOutput bool
	verbose    bool
	cfg        *config.Config

	chatPrompt      string
	chatSystem      string
	chatTemperature float32
	chatMaxTokens   int
	chatStream      bool

	configureModel   string
	configureBaseURL string
}

// WithConfigLoader injects a config loader dependency.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithClientFactory injects a client factory dependency.
func WithClientFactory(factory ClientFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newClient = factory
		}
	}
}

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a new CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig: config.Load,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	a.newClient = a.defaultClientFactory

	for _, opt := range opts {
		opt(a)
	}

	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "anthropic",
		Short: "Anthropic API command-line interface",
		Long: `Command-line interface for the Anthropic API.

Use it to send messages, stream responses, and inspect available models.
Credentials come from ANTHROPIC_API_KEY or the config file written by
'anthropic configure'.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceUsage: true,
	}

	// Global flags available to all commands.
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.anthropic/config.yaml)")
	root.PersistentFlags().StringVar(&a.model, "model", "", "model ID (e.g. claude-sonnet-4-20250514)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(a.newChatCommand())
	root.AddCommand(a.newModelsCommand())
	root.AddCommand(a.newConfigureCommand())
	root.AddCommand(a.newVersionCommand())

	return root
}

// Execute runs the root command.
func (a *App) Execute() error {
	return a.root.Execute()
}

// initConfig loads the config file, overlays environment variables, and
// resolves defaults for flags the user did not set.
func (a *App) initConfig() error {
	path := a.cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := a.loadConfig(path)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	a.cfg = cfg

	if a.model == "" && cfg.DefaultModel != "" {
		a.model = cfg.DefaultModel
	}

	a.logger = logging.New(
		logging.WithDebug(a.verbose),
		logging.WithWriter(a.stderr),
	)

	return nil
}

// defaultClientFactory builds a real API client from the effective config.
func (a *App) defaultClientFactory(cfg *config.Config, telemetry core.TelemetryHook) (*anthropic.Client, error) {
	var opts []anthropic.Option

	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, anthropic.WithRetryPolicy(core.NewRetryPolicy(core.RetryConfig{
			MaxRetries: cfg.MaxRetries,
		})))
	}
	if cfg.RequestsPerMinute > 0 {
		adaptive := ratelimit.NewAdaptive(ratelimit.Config{
			MaxRequests: cfg.RequestsPerMinute,
			Window:      time.Minute,
		})
		opts = append(opts, anthropic.WithAdaptiveRateLimiter(adaptive))
		opts = append(opts, anthropic.WithSmartRetryDelay())
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, anthropic.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		}))
	}
	if telemetry != nil {
		opts = append(opts, anthropic.WithTelemetry(telemetry))
	}

	if cfg.APIKey == "" {
		return nil, exitWithCode(ExitValidation, errNoAPIKey)
	}
	return anthropic.New(cfg.APIKey, opts...)
}

// client creates the API client for a command run, wiring telemetry to
// the CLI logger when --verbose is set.
func (a *App) client() (*anthropic.Client, error) {
	var telemetry core.TelemetryHook
	if a.verbose {
		telemetry = logging.NewTelemetryHook(a.logger)
	}
	return a.newClient(a.cfg, telemetry)
}
