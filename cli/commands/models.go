package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and inspect available models",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List available models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runModelsList(cmd.Context())
		},
	}

	get := &cobra.Command{
		Use:   "get <model-id>",
		Short: "Show details for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runModelsGet(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(list)
	cmd.AddCommand(get)
	return cmd
}

func (a *App) runModelsList(ctx context.Context) error {
	client, err := a.client()
	if err != nil {
		return classifyError(err)
	}

	models, err := client.Models.ListAll(ctx)
	if err != nil {
		return classifyError(err)
	}

	if a.jsonOutput {
		return a.outputJSON(models)
	}

	for _, m := range models {
		fmt.Fprintf(a.stdout, "%-40s %s\n", m.ID, m.DisplayName)
	}
	return nil
}

func (a *App) runModelsGet(ctx context.Context, id string) error {
	client, err := a.client()
	if err != nil {
		return classifyError(err)
	}

	model, err := client.Models.Get(ctx, id)
	if err != nil {
		return classifyError(err)
	}

	if a.jsonOutput {
		return a.outputJSON(model)
	}

	fmt.Fprintf(a.stdout, "ID:           %s\n", model.ID)
	fmt.Fprintf(a.stdout, "Display name: %s\n", model.DisplayName)
	if !model.CreatedAt.IsZero() {
		fmt.Fprintf(a.stdout, "Created:      %s\n", model.CreatedAt.Format("2006-01-02"))
	}
	return nil
}
