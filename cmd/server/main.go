package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	webAdapter "stock-engine/internal/adapters/web"
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

	if cfg.JWT.Secret == "" {
		appLogger.Fatal("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Postgres)
	if err != nil {
		appLogger.Fatal("could not connect to database", zap.Error(err))
	}
	defer pool.Close()

	var statsCache core.StatsCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			appLogger.Fatal("could not connect to redis", zap.Error(err))
		}
		defer rc.Close()
		statsCache = rc
		appLogger.Info("statistics cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	svc := app.New(db.NewPostgresStore(pool), statsCache, cfg, appLogger)
	handler := webAdapter.NewHandler(svc, cfg.Server, cfg.JWT.Secret, appLogger.Named("http"))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("server shutdown", zap.Error(err))
		}
	}()

	appLogger.Info("server starting", zap.String("addr", cfg.Server.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLogger.Fatal("server", zap.Error(err))
	}
	appLogger.Info("server stopped")
}
