package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joescharf/crv/internal/output"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List selectable models and whether their provider is configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		return modelsRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func modelsRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	registry, err := newRegistry(ctx, settings)
	if err != nil {
		return err
	}

	table := ui.Table([]string{"Model", "Provider", "Available", "Default"})
	for _, m := range registry.Models() {
		available := output.Red("no")
		if m.Available {
			available = output.Green("yes")
		}
		def := ""
		if m.Default {
			def = "*"
		}
		_ = table.Append([]string{m.ID, string(m.Provider), available, def})
	}
	return table.Render()
}
