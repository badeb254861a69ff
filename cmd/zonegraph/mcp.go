package zonegraph

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/soundprediction/zonegraph/pkg/mcptools"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the graph query tools over MCP on stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing the
search_graph, get_entity_relationships, get_entity_timeline, get_graph_stats
and get_run_status tools. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := a.openGraph(ctx)
			if err != nil {
				return err
			}
			defer client.Close(context.WithoutCancel(ctx))

			checkpoints, err := a.checkpoints()
			if err != nil {
				return err
			}

			srv := mcptools.NewServer(&mcptools.GraphTools{
				Client:      client,
				Checkpoints: checkpoints,
				Logger:      a.logger,
			}, mcptools.Options{Name: a.cfg.MCP.Name, Version: a.cfg.MCP.Version})

			a.logger.Info("MCP server ready", "transport", "stdio")
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		},
	}
}
