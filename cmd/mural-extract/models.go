package main

import (
	"fmt"

	"github.com/raine/mural-table-bot/internal/llm"
	"github.com/spf13/cobra"
)

func newModelsCommand(newBackend backendFactory, opts *extractOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models that can extract records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newBackend(cmd.Context(), backendOptions{noCache: true, dbPath: opts.dbPath})
			if err != nil {
				return err
			}
			defer b.close()

			models, err := b.lister.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list models: %w", err)
			}
			models = llm.GenerationModels(models)
			if len(models) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No generation models available.")
				return nil
			}

			rows := make([][]string, 0, len(models))
			for _, m := range models {
				name := llm.NormalizeModelName(m.Name)
				order := ""
				for i, candidate := range b.models {
					if candidate == name {
						order = fmt.Sprint(i + 1)
					}
				}
				rows = append(rows, []string{name, m.DisplayName, order})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Model", "Name", "Order"}, rows))
			return nil
		},
	}
}
