package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-engine/internal/core"
)

// addProductFunc inserts a catalogue product and returns it with its id.
type addProductFunc func(t *testing.T, p core.Product) core.Product

// runStoreContract exercises the behaviour every core.Store must share.
func runStoreContract(t *testing.T, store core.Store, add addProductFunc) {
	ctx := context.Background()
	cost := decimal.RequireFromString("1.25")
	a := add(t, core.Product{Code: "SKU-B", Name: "Bolt", Department: "A", UnitCost: &cost})
	b := add(t, core.Product{Code: "sku-a", Name: "Anchor", Department: "B", ShopName: "East"})

	t.Run("products", func(t *testing.T) {
		p, err := store.ProductByCode(ctx, "SKU-B")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, a.ID, p.ID)
		require.NotNil(t, p.UnitCost)
		assert.True(t, p.UnitCost.Equal(cost))
		assert.Nil(t, p.PoolID)

		missing, err := store.ProductByCode(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)

		list, err := store.ListProducts(ctx, core.ProductFilter{SKUContains: "SKU"})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "SKU-B", list[0].Code, "ordered by code")

		list, err = store.ListProducts(ctx, core.ProductFilter{ShopName: "East"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, b.ID, list[0].ID)

		list, err = store.ListProducts(ctx, core.ProductFilter{SKUContains: "_"})
		require.NoError(t, err)
		assert.Empty(t, list, "wildcards match literally")

		byID, err := store.ProductsByIDs(ctx, []int64{b.ID, a.ID})
		require.NoError(t, err)
		assert.Len(t, byID, 2)
	})

	t.Run("code mappings", func(t *testing.T) {
		m := core.CodeMapping{ExternalCode: "EXT-1", Code: "SKU-B"}
		require.NoError(t, store.InsertCodeMapping(ctx, m))
		err := store.InsertCodeMapping(ctx, core.CodeMapping{ExternalCode: "EXT-1", Code: "sku-a"})
		assert.True(t, errors.Is(err, core.ErrDuplicateKey))

		got, err := store.LookupCodeMapping(ctx, "EXT-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "SKU-B", got.Code)

		none, err := store.LookupCodeMapping(ctx, "EXT-2")
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("stock records", func(t *testing.T) {
		rec := core.WarehouseStockRecord{ProductID: a.ID, WarehouseCode: "No", StockQuantity: 5, SluggishDays: 1}
		require.NoError(t, store.UpsertStockRecord(ctx, rec))

		ok, err := store.SetReorderThreshold(ctx, a.ID, "No", 8)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = store.SetReorderThreshold(ctx, a.ID, "So", 8)
		require.NoError(t, err)
		assert.False(t, ok)

		rec.StockQuantity = 3
		rec.ReorderThreshold = 99
		require.NoError(t, store.UpsertStockRecord(ctx, rec))
		got, err := store.GetStockRecord(ctx, a.ID, "No")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 3, got.StockQuantity)
		assert.Equal(t, 8, got.ReorderThreshold, "upsert keeps the user threshold")

		require.NoError(t, store.UpsertStockRecord(ctx, core.WarehouseStockRecord{ProductID: b.ID, WarehouseCode: "No", StockQuantity: 1}))
		require.NoError(t, store.UpsertStockRecord(ctx, core.WarehouseStockRecord{ProductID: a.ID, WarehouseCode: "Ea", StockQuantity: 1}))

		all, err := store.ListStockRecords(ctx, core.RecordScan{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, a.ID, all[0].ProductID)
		assert.Equal(t, "Ea", all[0].WarehouseCode)

		north, err := store.ListStockRecords(ctx, core.RecordScan{WarehouseCode: "No"})
		require.NoError(t, err)
		assert.Len(t, north, 2)

		onlyB, err := store.ListStockRecords(ctx, core.RecordScan{ProductIDs: []int64{b.ID}})
		require.NoError(t, err)
		assert.Len(t, onlyB, 1)

		none, err := store.ListStockRecords(ctx, core.RecordScan{ProductIDs: []int64{}})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("pools", func(t *testing.T) {
		pool, err := store.CreatePool(ctx, 4)
		require.NoError(t, err)
		require.NoError(t, store.SetProductPool(ctx, a.ID, &pool.ID))
		require.NoError(t, store.SetProductPool(ctx, b.ID, &pool.ID))
		require.NoError(t, store.SetPoolQuantity(ctx, pool.ID, 9))

		got, err := store.GetPool(ctx, pool.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 9, got.Quantity)

		members, err := store.PoolMembers(ctx, pool.ID)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, "SKU-B", members[0].Code)

		require.NoError(t, store.SetProductPool(ctx, a.ID, nil))
		require.NoError(t, store.SetProductPool(ctx, b.ID, nil))
		require.NoError(t, store.DeletePool(ctx, pool.ID))
		gone, err := store.GetPool(ctx, pool.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)
	})

	t.Run("transactions", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.WithTx(ctx, func(tx core.Store) error {
			if err := tx.UpsertStockRecord(ctx, core.WarehouseStockRecord{ProductID: b.ID, WarehouseCode: "So", StockQuantity: 2}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		rolled, err := store.GetStockRecord(ctx, b.ID, "So")
		require.NoError(t, err)
		assert.Nil(t, rolled, "failed transaction writes nothing")

		err = store.WithTx(ctx, func(tx core.Store) error {
			if err := tx.UpsertStockRecord(ctx, core.WarehouseStockRecord{ProductID: b.ID, WarehouseCode: "So", StockQuantity: 2}); err != nil {
				return err
			}
			inside, err := tx.GetStockRecord(ctx, b.ID, "So")
			if err != nil {
				return err
			}
			assert.NotNil(t, inside, "transaction sees its own writes")
			return nil
		})
		require.NoError(t, err)
		committed, err := store.GetStockRecord(ctx, b.ID, "So")
		require.NoError(t, err)
		require.NotNil(t, committed)
		assert.Equal(t, 2, committed.StockQuantity)
	})
}
