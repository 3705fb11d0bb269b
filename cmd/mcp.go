package cmd

import (
	"context"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/crv/internal/daemon"
	"github.com/joescharf/crv/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client create review sessions, upload documents and run
analyses. Configure it with:

  {
    "mcpServers": {
      "crv": { "command": "crv", "args": ["mcp"] }
    }
  }

Available tools: crv_create_session, crv_upload_document, crv_analyze_code,
crv_get_results, crv_comprehensive_analysis, crv_dashboard`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, daemon.ShutdownSignals()...)
	defer stop()

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	runner, _, cleanup, err := runnerFactory(ctx, settings)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Debug("starting MCP stdio server", "settings", settings)
	return mcp.NewServer(s, runner, settings.Oracle.DefaultModel, settings.Upload.MaxFileSize).ServeStdio(ctx)
}
