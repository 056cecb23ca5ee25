package core_test

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stock-engine/internal/core"
	"stock-engine/internal/db"
)

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

func costPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// seedProducts stores products SKU1..SKUn in department "A" with unit cost 2.50.
func seedProducts(t *testing.T, store *db.MemoryStore, n int) []core.Product {
	t.Helper()
	out := make([]core.Product, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, store.AddProduct(core.Product{
			Code:       "SKU" + strconv.Itoa(i),
			Name:       "Product " + strconv.Itoa(i),
			Department: "A",
			UnitCost:   costPtr("2.50"),
		}))
	}
	return out
}

func stockRow(code, warehouse, stock, daily, monthly string) map[string]string {
	return map[string]string{
		"SKU":           code,
		"Warehouse":     warehouse,
		"Stock":         stock,
		"Daily Sales":   daily,
		"Monthly Sales": monthly,
	}
}

func getRecord(t *testing.T, store core.Store, productID int64, warehouse string) *core.WarehouseStockRecord {
	t.Helper()
	rec, err := store.GetStockRecord(context.Background(), productID, warehouse)
	require.NoError(t, err)
	require.NotNil(t, rec, "record %d/%s", productID, warehouse)
	return rec
}

// fakeCache is an in-process StatsCache that counts traffic.
type fakeCache struct {
	mu            sync.Mutex
	entries       map[string]core.Statistics
	gets, sets    int
	invalidations int
	generation    int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]core.Statistics)}
}

func (c *fakeCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

func (c *fakeCache) GetStatistics(_ context.Context, key string) (*core.Statistics, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	st, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &st, true, nil
}

func (c *fakeCache) SetStatistics(_ context.Context, key string, st core.Statistics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[key] = st
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	c.generation++
	c.entries = make(map[string]core.Statistics)
	return nil
}
