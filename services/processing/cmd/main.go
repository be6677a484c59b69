package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/nathangreen1632/CareerGistPRO/common/database"
	"github.com/nathangreen1632/CareerGistPRO/common/jobstore"
	"github.com/nathangreen1632/CareerGistPRO/common/logger"
	"github.com/nathangreen1632/CareerGistPRO/common/telemetry"
	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/config"
	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/events"
	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/processor"
	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/recommend"
	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/signals"
)

const (
	serviceName    = "processing"
	serviceVersion = "1.0.0"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.LogJSON, cfg.LogDebug)
}

func newNATSConnection(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.NATSConnTimeout),
		nats.Name("processing-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	}
	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return nc.Drain()
		},
	})
	return nc, nil
}

func newClickHouseConnection(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (clickhouse.Conn, error) {
	conn, err := database.NewClickHouse(context.Background(), database.ClickHouseOptions{
		DSN:             cfg.ClickHouseDSN,
		Username:        cfg.ClickHouseUsername,
		Password:        cfg.ClickHousePassword,
		Database:        cfg.ClickHouseDatabase,
		MaxOpenConns:    cfg.ClickHouseMaxOpenConns,
		MaxIdleConns:    cfg.ClickHouseMaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouseConnMaxLife,
	}, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return conn.Close()
		},
	})
	return conn, nil
}

func newPostgresPool(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := database.NewPostgresPool(context.Background(), database.PostgresOptions{
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
	return pool, nil
}

func newJobStore(pool *pgxpool.Pool, logger *zap.Logger) jobstore.Gateway {
	return jobstore.NewPostgres(pool, logger)
}

func newFavorites(jobs jobstore.Gateway, pool *pgxpool.Pool, logger *zap.Logger) *signals.Service {
	return signals.NewService(jobs, signals.NewPostgresSnapshots(pool), logger)
}

func newRecommendations(favorites *signals.Service, jobs jobstore.Gateway, cfg *config.Config, logger *zap.Logger) *recommend.Service {
	engine := recommend.NewEngine(favorites, logger)
	return recommend.NewService(engine, jobs, cfg.PoolSize, logger)
}

func newTracer() trace.Tracer {
	return telemetry.GetTracer("careergist/processing")
}

func registerTracing(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) error {
	if cfg.OTelCollectorURL == "" {
		logger.Debug("tracing disabled, OTEL_COLLECTOR_URL not set")
		return nil
	}
	shutdown, err := telemetry.InitTracer(context.Background(), serviceName, serviceVersion, cfg.OTelCollectorURL)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{OnStop: shutdown})
	return nil
}

func ensureArchiveSchema(lc fx.Lifecycle, p *processor.JobProcessor) {
	lc.Append(fx.Hook{
		OnStart: p.EnsureSchema,
	})
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("loading .env: %v", err)
	}

	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			newLogger,
			newNATSConnection,
			newClickHouseConnection,
			newPostgresPool,
			newJobStore,
			newFavorites,
			newRecommendations,
			processor.NewJobProcessor,
			events.NewHandler,
			newTracer,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(
			registerTracing,
			ensureArchiveSchema,
			func(handler *events.Handler, lc fx.Lifecycle) error {
				return handler.RegisterSubscriptions(lc)
			},
		),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}
