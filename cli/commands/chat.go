package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/calder-ai/anthropic-go/anthropic"
	"github.com/calder-ai/anthropic-go/core"
	"github.com/calder-ai/anthropic-go/stream"
)

func (a *App) newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send a message to a model",
		Long: `Send a message to a model and print the response.

Examples:
  anthropic chat --model claude-sonnet-4-20250514 --prompt "Hello"
  anthropic chat --prompt "Hello" --stream
  anthropic chat --prompt "Hello" --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&a.chatPrompt, "prompt", "", "User message (required)")
	cmd.Flags().StringVar(&a.chatSystem, "system", "", "System prompt")
	cmd.Flags().Float32Var(&a.chatTemperature, "temperature", 0, "Temperature (0 = use default)")
	cmd.Flags().IntVar(&a.chatMaxTokens, "max-tokens", 0, "Max tokens (0 = use default)")
	cmd.Flags().BoolVar(&a.chatStream, "stream", false, "Stream the response as it is generated")

	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func (a *App) runChat(ctx context.Context) error {
	if a.model == "" {
		return exitWithCode(ExitValidation,
			fmt.Errorf("model required: use --model or set default_model in config"))
	}

	client, err := a.client()
	if err != nil {
		return classifyError(err)
	}

	builder := anthropic.NewMessage(a.model).User(a.chatPrompt)
	if a.chatSystem != "" {
		builder.System(a.chatSystem)
	}
	if a.chatTemperature > 0 {
		builder.Temperature(a.chatTemperature)
	}
	if a.chatMaxTokens > 0 {
		builder.MaxTokens(a.chatMaxTokens)
	}

	if a.chatStream {
		return a.runStreamingChat(ctx, client, builder)
	}
	return a.runBlockingChat(ctx, client, builder)
}

func (a *App) runBlockingChat(ctx context.Context, client *anthropic.Client, builder *anthropic.MessageBuilder) error {
	resp, err := builder.Create(ctx, client)
	if err != nil {
		return classifyError(err)
	}

	if a.jsonOutput {
		return a.outputJSON(resp)
	}

	fmt.Fprintln(a.stdout, resp.Text())
	a.logUsage(resp.Usage)
	return nil
}

func (a *App) runStreamingChat(ctx context.Context, client *anthropic.Client, builder *anthropic.MessageBuilder) error {
	s, err := builder.Stream(ctx, client)
	if err != nil {
		return classifyError(err)
	}

	if a.jsonOutput {
		// Accumulate the full message for JSON output.
		resp, err := s.CollectMessage(ctx)
		if err != nil {
			return classifyError(err)
		}
		return a.outputJSON(resp)
	}
	defer s.Close()

	var usage core.Usage
	for {
		ev, err := s.Recv(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintln(a.stdout)
			return classifyError(err)
		}

		switch ev := ev.(type) {
		case stream.ContentBlockDeltaEvent:
			if ev.Delta.Text != "" {
				fmt.Fprint(a.stdout, ev.Delta.Text)
			}
		case stream.MessageStartEvent:
			usage.Merge(ev.Message.Usage)
		case stream.MessageDeltaEvent:
			usage.Merge(ev.Usage)
		}
	}

	fmt.Fprintln(a.stdout)
	a.logUsage(usage)
	return nil
}

func (a *App) outputJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) logUsage(usage core.Usage) {
	if !a.verbose {
		return
	}
	a.logger.Debug("token usage",
		"input", usage.InputTokens,
		"output", usage.OutputTokens,
		"total", usage.TotalTokens(),
	)
}
