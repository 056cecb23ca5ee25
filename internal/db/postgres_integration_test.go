package db_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"stock-engine/internal/core"
	"stock-engine/internal/db"
	"stock-engine/migrations"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Integration tests truncate every table; never point this at a live database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "connect to test database")
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool, migrations.FS, nil), "apply schema")

	_, err = pool.Exec(ctx, `TRUNCATE TABLE warehouse_stock_records, code_mappings, products, shared_pools RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "truncate")
	return pool
}

func TestPostgresStore_Contract(t *testing.T) {
	pool := setupTestDB(t)
	store := db.NewPostgresStore(pool)

	runStoreContract(t, store, func(t *testing.T, p core.Product) core.Product {
		saved, err := store.UpsertCatalogProducts(context.Background(), []core.Product{p})
		require.NoError(t, err)
		return saved[0]
	})
}

func TestPostgresStore_UpsertCatalogKeepsPool(t *testing.T) {
	pool := setupTestDB(t)
	store := db.NewPostgresStore(pool)
	ctx := context.Background()

	saved, err := store.UpsertCatalogProducts(ctx, []core.Product{{Code: "SKU1", Name: "Old"}})
	require.NoError(t, err)
	sp, err := store.CreatePool(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, store.SetProductPool(ctx, saved[0].ID, &sp.ID))

	again, err := store.UpsertCatalogProducts(ctx, []core.Product{{Code: "SKU1", Name: "New", Department: "A"}})
	require.NoError(t, err)
	require.Equal(t, saved[0].ID, again[0].ID)
	require.Equal(t, "New", again[0].Name)
	require.NotNil(t, again[0].PoolID)
	require.Equal(t, sp.ID, *again[0].PoolID)
}

func TestPostgresStore_PoolsEndToEnd(t *testing.T) {
	pool := setupTestDB(t)
	store := db.NewPostgresStore(pool)
	ctx := context.Background()

	for _, code := range []string{"SKU1", "SKU2"} {
		_, err := pool.Exec(ctx, `INSERT INTO products (code, department) VALUES ($1, 'A')`, code)
		require.NoError(t, err)
	}
	svc := core.NewPoolService(store, core.NewKeyedLocker(), nil)
	_, err := svc.Provision(ctx, core.AllowAll, "SKU1", 3)
	require.NoError(t, err)
	_, err = svc.Provision(ctx, core.AllowAll, "SKU2", 4)
	require.NoError(t, err)

	merged, err := svc.Merge(ctx, core.AllowAll, []string{"SKU1", "SKU2"})
	require.NoError(t, err)
	require.Equal(t, 7, merged.Quantity)

	var pools int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM shared_pools`).Scan(&pools))
	require.Equal(t, 1, pools)
}
