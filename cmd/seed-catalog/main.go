// seed-catalog loads catalogue products from a CSV file into DATABASE_URL so a local
// database has products to import stock against. Existing products are refreshed by SKU.
//
// Usage: go run ./cmd/seed-catalog <catalog.csv>
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stock-engine/internal/adapters/sheet"
	"stock-engine/internal/config"
	"stock-engine/internal/db"
	"stock-engine/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: seed-catalog <catalog.csv>")
	}
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer appLogger.Sync() //nolint:errcheck

	f, err := os.Open(os.Args[1])
	if err != nil {
		appLogger.Fatal("failed to open catalogue", zap.Error(err))
	}
	products, err := sheet.ReadCatalog(f)
	f.Close()
	if err != nil {
		appLogger.Fatal("failed to parse catalogue", zap.String("file", os.Args[1]), zap.Error(err))
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres)
	if err != nil {
		appLogger.Fatal("failed to connect", zap.Error(err))
	}
	defer pool.Close()

	saved, err := db.NewPostgresStore(pool).UpsertCatalogProducts(ctx, products)
	if err != nil {
		appLogger.Fatal("failed to seed catalogue", zap.Error(err))
	}
	appLogger.Info("catalogue seeded", zap.Int("products", len(saved)))
}
