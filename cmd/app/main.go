package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stock-engine/internal/adapters/cli"
	"stock-engine/internal/adapters/repl"
	"stock-engine/internal/app"
	"stock-engine/internal/cache"
	"stock-engine/internal/config"
	"stock-engine/internal/core"
	"stock-engine/internal/db"
	"stock-engine/internal/logger"
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
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	// Imports and threshold updates must still invalidate the server's cached statistics.
	var statsCache core.StatsCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			appLogger.Warn("statistics cache unavailable", zap.Error(err))
		} else {
			defer rc.Close()
			statsCache = rc
		}
	}

	svc := app.New(db.NewPostgresStore(pool), statsCache, cfg, appLogger)
	if len(os.Args) < 2 {
		if err := repl.Run(ctx, svc, os.Stdin, os.Stdout); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}
	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}
