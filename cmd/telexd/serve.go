package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/illmade-knight/go-telex/pkg/config"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run ingestion, the archive API and the exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logger := cfg.Log.Logger()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logger.Info().Str("addr", cfg.HTTP.Addr).Msg("Starting telexd.")

			app := NewApp(cfg, logger)
			defer func() {
				if err := app.Close(); err != nil {
					logger.Warn().Err(err).Msg("Error closing clients.")
				}
			}()
			if err := app.Initialize(ctx); err != nil {
				logger.Error().Err(err).Msg("Failed to initialize application.")
				return err
			}

			if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("Service stopped with error.")
				return err
			}
			logger.Info().Msg("telexd stopped.")
			return nil
		},
	}
}
