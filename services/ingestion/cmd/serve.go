package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled ingestion cycles until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	app := fx.New(
		pipelineModule(),
		fx.Provide(newScheduler),
		fx.Invoke(registerScheduler),
	)

	if err := app.Start(ctx); err != nil {
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	return app.Stop(context.Background())
}

func registerScheduler(lc fx.Lifecycle, s *scheduler.JobScheduler, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("ingestion service started successfully")
			return s.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down...")
			return s.Stop(ctx)
		},
	})
}
