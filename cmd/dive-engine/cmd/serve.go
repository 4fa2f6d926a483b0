package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/duclm1x1/dive-engine/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over MCP on stdio",
		Long: `Serve exposes the engine as a Model Context Protocol server on
stdin/stdout. Clients get query, ingest, delete_document and
index_status tools. Logs go to the log file, never to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			server, err := mcp.NewServer(engine)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("mcp server starting on stdio")
			return server.Run(ctx)
		},
	}
}
