// migrate applies the embedded schema migrations to DATABASE_URL.
//
// Usage: go run ./cmd/migrate
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stock-engine/internal/config"
	"stock-engine/internal/db"
	"stock-engine/internal/logger"
	"stock-engine/migrations"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer appLogger.Sync() //nolint:errcheck

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres)
	if err != nil {
		appLogger.Fatal("failed to connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.FS, appLogger); err != nil {
		appLogger.Fatal("migration failed", zap.Error(err))
	}
	appLogger.Info("all migrations processed")
}
