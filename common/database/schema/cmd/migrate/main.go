package main

import (
	"context"
	"log"
	"os"

	"github.com/nathangreen1632/CareerGistPRO/common/database"
	"github.com/nathangreen1632/CareerGistPRO/common/database/schema"
	"github.com/nathangreen1632/CareerGistPRO/common/database/schema/migrations"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, database.PostgresOptions{URL: databaseURL}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	migrator := schema.NewMigrator(pool, logger)

	if len(os.Args) > 1 && os.Args[1] == "down" {
		last := migrations.All[len(migrations.All)-1]
		logger.Info("Rolling back migration",
			zap.Int("version", last.Version),
			zap.String("description", last.Description),
		)
		if err := migrator.RollbackMigration(ctx, last); err != nil {
			logger.Fatal("Failed to roll back migration", zap.Int("version", last.Version), zap.Error(err))
		}
		return
	}

	if err := migrator.Migrate(ctx, migrations.All); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	logger.Info("All migrations completed successfully")
}
