// Package main provides the semcat binary: standard-name table tooling,
// HDF5 attribute validation, DCAT catalog mirroring and federated queries
// over the catalog stores.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semcat/config"
)

const (
	// Version is the binary version, overridden at build time.
	Version = "0.1.0"
	appName = "semcat"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliState carries the loaded configuration into subcommands.
type cliState struct {
	cfg    *config.Config
	logger *slog.Logger
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)
	state := &cliState{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Research data catalog tools",
		Long: `Semcat manages research data catalogs: standard name tables,
convention-checked HDF5 files, DCAT catalog mirroring and federated
SPARQL queries across metadata stores.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(logLevel)
			slog.SetDefault(logger)
			state.logger = logger

			cfg, err := loadConfig(configPath, logger)
			if err != nil {
				return err
			}
			state.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		sntCmd(state),
		validateCmd(state),
		catalogCmd(state),
		registryCmd(state),
		serveMetricsCmd(state),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

func newLogger(level string) *slog.Logger {
	l := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// loadConfig uses the explicit file when given, the layered loader
// otherwise.
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	if path == "" {
		return config.NewLoader(logger).Load()
	}
	cfg := config.DefaultConfig()
	layer, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.Merge(layer)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
