package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maauso/video2gif-api/internal/config"
)

func newRootCommand() *cobra.Command {
	serveCmd := newServeCommand()

	rootCmd := &cobra.Command{
		Use:           "video2gif",
		Short:         "Convert videos to size-bounded animated GIFs",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running without a subcommand starts the server.
		RunE: serveCmd.RunE,
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newConvertCommand())

	return rootCmd
}

// loadConfig loads configuration and installs the configured logger as default.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	return cfg, logger, nil
}
