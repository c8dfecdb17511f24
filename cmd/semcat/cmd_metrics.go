package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semcat/metric"
)

func serveMetricsCmd(state *cliState) *cobra.Command {
	var (
		port int
		path string
	)

	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve Prometheus metrics until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == 0 {
				port = state.cfg.Metrics.Port
			}
			if path == "" {
				path = state.cfg.Metrics.Path
			}

			registry := metric.NewRegistry()
			server := metric.NewServer(port, path, registry)
			if err := server.Start(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "serving metrics on :%d%s\n", port, path)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Stop(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	cmd.Flags().StringVar(&path, "path", "", "metrics path (default from config)")
	return cmd
}
