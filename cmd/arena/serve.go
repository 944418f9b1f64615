package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Dakheel-code/arena-run-sub001/internal/config"
	"github.com/Dakheel-code/arena-run-sub001/internal/di"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := observability.NewLogger(os.Stdout, cfg)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := di.InitializeApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if a.Observability != nil && a.Observability.Logger != nil {
				slog.SetDefault(a.Observability.Logger)
				a.Logger = a.Observability.Logger
			}
			return a.Run(ctx)
		},
	}
}
