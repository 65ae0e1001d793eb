package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lakewatch/lakewatch/pkg/agent"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server for AI assistants",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tools over stdio",
	Long: `Serve every lakewatch query as an MCP tool over stdio, for use as a
tool server by AI assistants. Logs go to stderr; stdout carries the
protocol.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := agent.NewServer(agent.Services{
			Jobs:       a.jobs,
			Clusters:   a.clusters,
			Queries:    a.queries,
			Pipelines:  a.pipelines,
			Security:   a.security,
			Audit:      a.audit,
			Chargeback: a.chargeback,
		}, Version)

		a.logger.Info("mcp server listening on stdio")
		return server.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.AddCommand(mcpServeCmd)
}
