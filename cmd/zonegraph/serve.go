package zonegraph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/zonegraph/pkg/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
		mode string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only HTTP API",
		Long: `Start the HTTP server exposing graph search, entity relationships and
timelines, graph statistics and ingestion run status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			if cmd.Flags().Changed("mode") {
				a.cfg.Server.Mode = mode
			}
			if a.cfg.Server.Port <= 0 || a.cfg.Server.Port > 65535 {
				return fmt.Errorf("invalid port: %d", a.cfg.Server.Port)
			}

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

			srv := server.New(a.cfg, client, checkpoints, a.logger)
			srv.Setup()

			serverErrChan := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErrChan <- err
				}
			}()

			select {
			case err := <-serverErrChan:
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := srv.Stop(shutdownCtx); err != nil {
					return fmt.Errorf("server shutdown error: %w", err)
				}
				a.logger.Info("Server stopped gracefully")
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "server host")
	cmd.Flags().IntVar(&port, "port", 8080, "server port")
	cmd.Flags().StringVar(&mode, "mode", "release", "gin mode (debug, release, test)")
	return cmd
}
