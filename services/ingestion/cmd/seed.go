package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/config"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/models"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/pipeline"
)

var seedOpts struct {
	title     string
	location  string
	radius    int
	firstPage int
	maxPage   int
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Walk every page of one query sequentially to populate the job store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return seed(ctx, cmd)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOpts.title, "title", "", "search title (default SEED_TITLE)")
	seedCmd.Flags().StringVar(&seedOpts.location, "location", "", "search location (default SEED_LOCATION)")
	seedCmd.Flags().IntVar(&seedOpts.radius, "radius", 0, "search radius in miles (default SEED_RADIUS)")
	seedCmd.Flags().IntVar(&seedOpts.firstPage, "from", 1, "first page to fetch")
	seedCmd.Flags().IntVar(&seedOpts.maxPage, "max-page", 0, "last page to fetch (default SEED_MAX_PAGE)")
}

func seedRun(cfg *config.Config, cmd *cobra.Command) pipeline.Run {
	run := pipeline.Run{
		Query: models.SearchQuery{
			Title:    cfg.SeedTitle,
			Location: cfg.SeedLocation,
			Radius:   cfg.SeedRadius,
		},
		FirstPage: seedOpts.firstPage,
		LastPage:  cfg.SeedMaxPage,
	}
	if cmd.Flags().Changed("title") {
		run.Query.Title = seedOpts.title
	}
	if cmd.Flags().Changed("location") {
		run.Query.Location = seedOpts.location
	}
	if cmd.Flags().Changed("radius") {
		run.Query.Radius = seedOpts.radius
	}
	if cmd.Flags().Changed("max-page") {
		run.LastPage = seedOpts.maxPage
	}
	return run
}

func seed(ctx context.Context, cmd *cobra.Command) error {
	var (
		p      *pipeline.Pipeline
		cfg    *config.Config
		logger *zap.Logger
	)

	app := fx.New(
		pipelineModule(),
		fx.Populate(&p, &cfg, &logger),
	)
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := app.Stop(context.Background()); err != nil {
			logger.Error("failed to stop cleanly", zap.Error(err))
		}
	}()

	run := seedRun(cfg, cmd)
	logger.Info("seeding job store",
		zap.Stringer("query", run.Query),
		zap.Int("first_page", run.FirstPage),
		zap.Int("last_page", run.LastPage))

	report := p.Execute(ctx, run)
	if report.FinalState != pipeline.StateDone.String() {
		return fmt.Errorf("seed run %s ended %s: %s", report.RunID, report.FinalState, report.Error)
	}
	return nil
}
