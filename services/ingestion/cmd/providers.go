package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/nathangreen1632/CareerGistPRO/common/cache"
	"github.com/nathangreen1632/CareerGistPRO/common/cache/redis"
	"github.com/nathangreen1632/CareerGistPRO/common/database"
	"github.com/nathangreen1632/CareerGistPRO/common/jobstore"
	"github.com/nathangreen1632/CareerGistPRO/common/logger"
	"github.com/nathangreen1632/CareerGistPRO/common/telemetry"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/api"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/config"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/messaging"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/pipeline"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/scheduler"
)

const serviceVersion = "1.0.0"

// pipelineModule provides everything a pipeline run needs. serve and seed
// both build on it.
func pipelineModule() fx.Option {
	return fx.Options(
		fx.Provide(
			loadConfig,
			newLogger,
			newJobStore,
			newCache,
			newPublisher,
			api.NewListingsClient,
			newPipeline,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(registerTracing),
	)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.LogJSON, cfg.LogDebug)
}

func registerTracing(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) error {
	if cfg.OTelCollectorURL == "" {
		logger.Debug("tracing disabled, OTEL_COLLECTOR_URL not set")
		return nil
	}

	shutdown, err := telemetry.InitTracer(context.Background(), app, serviceVersion, cfg.OTelCollectorURL)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return shutdown(ctx)
		},
	})
	return nil
}

// newJobStore picks Postgres when DATABASE_URL is set and the embedded SQLite
// store otherwise.
func newJobStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (jobstore.Gateway, error) {
	ctx := context.Background()

	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(ctx, database.PostgresOptions{
			URL:      cfg.DatabaseURL,
			MaxConns: int32(cfg.DatabaseMaxConns),
		}, logger)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				pool.Close()
				return nil
			},
		})
		return jobstore.NewPostgres(pool, logger), nil
	}

	store, err := jobstore.OpenSQLite(ctx, cfg.SQLitePath, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	logger.Info("using embedded job store", zap.String("path", cfg.SQLitePath))
	return store, nil
}

func newCache(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	opts := cache.DefaultOptions()
	opts.DefaultTTL = cfg.CacheTTL
	opts.KeyPrefix = "careergist:"
	opts.RedisURL = cfg.RedisAddr
	opts.RedisPassword = cfg.RedisPassword
	opts.RedisDB = cfg.RedisDB

	c, err := redis.New(opts)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := c.Ping(ctx); err != nil {
				logger.Warn("redis unreachable, every lookup will miss", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return c, nil
}

func newPublisher(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (messaging.Publisher, error) {
	publisher, err := messaging.NewPublisher(logger, cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			publisher.Close()
			return nil
		},
	})
	return publisher, nil
}

func newPipeline(client api.ListingsClient, store jobstore.Gateway, c cache.Cache, publisher messaging.Publisher, logger *zap.Logger, cfg *config.Config) *pipeline.Pipeline {
	return pipeline.New(client, store, c, publisher, logger, pipeline.Options{
		PageDelay:         cfg.PageDelay,
		RateLimitCooldown: cfg.RateLimitCooldown,
		CacheTTL:          cfg.CacheTTL,
	})
}

func newScheduler(p *pipeline.Pipeline, logger *zap.Logger, cfg *config.Config) *scheduler.JobScheduler {
	return scheduler.NewJobScheduler(p, logger, cfg)
}
