package db_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-engine/internal/core"
	"stock-engine/internal/db"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := db.NewMemoryStore()
	runStoreContract(t, store, func(t *testing.T, p core.Product) core.Product {
		return store.AddProduct(p)
	})
}

func TestMemoryStore_ConcurrentTransactionsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	p := store.AddProduct(core.Product{Code: "SKU1"})
	require.NoError(t, store.UpsertStockRecord(ctx, core.WarehouseStockRecord{ProductID: p.ID, WarehouseCode: "No"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithTx(ctx, func(tx core.Store) error {
				rec, err := tx.GetStockRecord(ctx, p.ID, "No")
				if err != nil {
					return err
				}
				rec.StockQuantity++
				return tx.UpsertStockRecord(ctx, *rec)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := store.GetStockRecord(ctx, p.ID, "No")
	require.NoError(t, err)
	assert.Equal(t, 50, rec.StockQuantity)
}

func TestMemoryStore_AddProductKeepsExplicitIDs(t *testing.T) {
	store := db.NewMemoryStore()
	first := store.AddProduct(core.Product{ID: 10, Code: "A"})
	next := store.AddProduct(core.Product{Code: "B"})
	assert.Equal(t, int64(10), first.ID)
	assert.Equal(t, int64(11), next.ID)
}
