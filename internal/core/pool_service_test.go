package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-engine/internal/core"
	"stock-engine/internal/db"
)

type poolFixture struct {
	ctx   context.Context
	store *db.MemoryStore
	svc   core.PoolService
}

func newPoolFixture(t *testing.T, products int) *poolFixture {
	t.Helper()
	store := db.NewMemoryStore()
	seedProducts(t, store, products)
	return &poolFixture{
		ctx:   context.Background(),
		store: store,
		svc:   core.NewPoolService(store, core.NewKeyedLocker(), nil),
	}
}

func (f *poolFixture) provision(t *testing.T, code string, qty int) *core.PoolView {
	t.Helper()
	v, err := f.svc.Provision(f.ctx, core.AllowAll, code, qty)
	require.NoError(t, err)
	return v
}

func (f *poolFixture) poolCount(t *testing.T) int {
	t.Helper()
	n := 0
	for id := int64(1); id <= 100; id++ {
		p, err := f.store.GetPool(f.ctx, id)
		require.NoError(t, err)
		if p != nil {
			n++
		}
	}
	return n
}

func TestPool_MergeSumsAbsorbedQuantities(t *testing.T) {
	f := newPoolFixture(t, 3)
	f.provision(t, "SKU1", 5)
	f.provision(t, "SKU2", 7)
	f.provision(t, "SKU3", 3)

	merged, err := f.svc.Merge(f.ctx, core.AllowAll, []string{"SKU3", "SKU1", "SKU2"})
	require.NoError(t, err)
	assert.Equal(t, 15, merged.Quantity)
	assert.Equal(t, []string{"SKU1", "SKU2", "SKU3"}, merged.MemberCodes)
	assert.True(t, merged.IsShared())
	assert.Equal(t, 1, f.poolCount(t), "absorbed pools are deleted")

	for _, code := range []string{"SKU1", "SKU2", "SKU3"} {
		v, err := f.svc.GetPool(f.ctx, core.AllowAll, code)
		require.NoError(t, err)
		assert.Equal(t, merged.ID, v.ID)
	}
}

func TestPool_SplitLeavesRemainingQuantity(t *testing.T) {
	f := newPoolFixture(t, 3)
	f.provision(t, "SKU1", 5)
	f.provision(t, "SKU2", 7)
	f.provision(t, "SKU3", 3)
	merged, err := f.svc.Merge(f.ctx, core.AllowAll, []string{"SKU1", "SKU2", "SKU3"})
	require.NoError(t, err)

	detached, err := f.svc.Split(f.ctx, core.AllowAll, "SKU2")
	require.NoError(t, err)
	assert.NotEqual(t, merged.ID, detached.ID)
	assert.Equal(t, core.DefaultSplitQuantity, detached.Quantity)
	assert.Equal(t, []string{"SKU2"}, detached.MemberCodes)
	assert.False(t, detached.IsShared())

	remaining, err := f.svc.GetPool(f.ctx, core.AllowAll, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, merged.ID, remaining.ID)
	assert.Equal(t, 15, remaining.Quantity)
	assert.Equal(t, []string{"SKU1", "SKU3"}, remaining.MemberCodes)
}

func TestPool_MergeKeepsPartiallyAbsorbedPool(t *testing.T) {
	f := newPoolFixture(t, 4)
	f.provision(t, "SKU1", 10)
	f.provision(t, "SKU3", 4)
	_, err := f.svc.Merge(f.ctx, core.AllowAll, []string{"SKU1", "SKU2"}) // SKU2 has no pool
	require.NoError(t, err)

	// SKU2 leaves its shared pool, which keeps SKU1 and its quantity.
	merged, err := f.svc.Merge(f.ctx, core.AllowAll, []string{"SKU2", "SKU3"})
	require.NoError(t, err)
	assert.Equal(t, 4, merged.Quantity)

	left, err := f.svc.GetPool(f.ctx, core.AllowAll, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, 10, left.Quantity)
	assert.Equal(t, []string{"SKU1"}, left.MemberCodes)
}

func TestPool_SplitIndependentPoolReplacesIt(t *testing.T) {
	f := newPoolFixture(t, 1)
	original := f.provision(t, "SKU1", 4)

	detached, err := f.svc.Split(f.ctx, core.AllowAll, "SKU1")
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, detached.ID)
	assert.Equal(t, core.DefaultSplitQuantity, detached.Quantity)
	assert.Equal(t, []string{"SKU1"}, detached.MemberCodes)

	gone, err := f.store.GetPool(f.ctx, original.ID)
	require.NoError(t, err)
	assert.Nil(t, gone, "emptied pool is deleted")
	assert.Equal(t, 1, f.poolCount(t))

	v, err := f.svc.GetPool(f.ctx, core.AllowAll, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, detached.ID, v.ID)
}

func TestPool_InvariantViolations(t *testing.T) {
	f := newPoolFixture(t, 2)
	f.provision(t, "SKU1", 5)

	_, err := f.svc.Merge(f.ctx, core.AllowAll, []string{"SKU1"})
	assert.True(t, errors.Is(err, core.ErrInvariantViolation), "merge needs two products")

	_, err = f.svc.Merge(f.ctx, core.AllowAll, []string{"SKU1", " SKU1 "})
	assert.True(t, errors.Is(err, core.ErrInvariantViolation), "duplicates collapse")

	_, err = f.svc.Split(f.ctx, core.AllowAll, "SKU2")
	assert.True(t, errors.Is(err, core.ErrInvariantViolation), "product without pool cannot split")

	_, err = f.svc.Provision(f.ctx, core.AllowAll, "SKU1", 1)
	assert.True(t, errors.Is(err, core.ErrInvariantViolation), "provision twice")

	_, err = f.svc.SetQuantity(f.ctx, core.AllowAll, "SKU2", 1)
	assert.True(t, errors.Is(err, core.ErrInvariantViolation))

	_, err = f.svc.Provision(f.ctx, core.AllowAll, "SKU2", -1)
	assert.True(t, errors.Is(err, core.ErrValidation))

	v, err := f.svc.GetPool(f.ctx, core.AllowAll, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, 5, v.Quantity, "failed operations write nothing")
	assert.Equal(t, 1, f.poolCount(t))
}

func TestPool_ScopeHidesProducts(t *testing.T) {
	f := newPoolFixture(t, 1)
	f.store.AddProduct(core.Product{Code: "B1", Department: "B"})
	f.provision(t, "SKU1", 5)

	deptA := core.DepartmentScope("A")
	_, err := f.svc.Merge(f.ctx, deptA, []string{"SKU1", "B1"})
	assert.True(t, errors.Is(err, core.ErrNotFoundOrForbidden))

	_, err = f.svc.GetPool(f.ctx, core.DepartmentScope("B"), "SKU1")
	assert.True(t, errors.Is(err, core.ErrNotFoundOrForbidden))

	_, err = f.svc.Merge(f.ctx, core.AllowAll, []string{"SKU1", "MISSING"})
	assert.True(t, errors.Is(err, core.ErrNotFoundOrForbidden))
}

func TestPool_SetQuantity(t *testing.T) {
	f := newPoolFixture(t, 2)
	f.provision(t, "SKU1", 5)
	f.provision(t, "SKU2", 5)
	_, err := f.svc.Merge(f.ctx, core.AllowAll, []string{"SKU1", "SKU2"})
	require.NoError(t, err)

	v, err := f.svc.SetQuantity(f.ctx, core.AllowAll, "SKU2", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, v.Quantity)

	v, err = f.svc.GetPool(f.ctx, core.AllowAll, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, 42, v.Quantity, "members share one count")
}

func TestPool_ConcurrentOverlappingMerges(t *testing.T) {
	f := newPoolFixture(t, 4)
	for _, code := range []string{"SKU1", "SKU2", "SKU3", "SKU4"} {
		f.provision(t, code, 1)
	}

	var wg sync.WaitGroup
	for _, pair := range [][]string{{"SKU1", "SKU2"}, {"SKU2", "SKU3"}, {"SKU3", "SKU4"}, {"SKU4", "SKU1"}} {
		wg.Add(1)
		go func(codes []string) {
			defer wg.Done()
			_, err := f.svc.Merge(f.ctx, core.AllowAll, codes)
			assert.NoError(t, err)
		}(pair)
	}
	wg.Wait()

	// Whatever the interleaving, physical stock is neither created nor destroyed.
	total := 0
	seen := map[int64]bool{}
	for _, code := range []string{"SKU1", "SKU2", "SKU3", "SKU4"} {
		v, err := f.svc.GetPool(f.ctx, core.AllowAll, code)
		require.NoError(t, err)
		if !seen[v.ID] {
			seen[v.ID] = true
			total += v.Quantity
		}
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, len(seen), f.poolCount(t), "no orphaned pools")
}
