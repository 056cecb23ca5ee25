package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultSplitQuantity is the quantity a product's new independent pool starts with after a split.
// The pool it leaves keeps its whole quantity.
const DefaultSplitQuantity = 0

// PoolService manages shared inventory pools: many product codes bound to one physical count.
//
// Every mutation locks the affected products first and then their pools, in sorted key order,
// so overlapping operations serialize instead of observing each other's intermediate state.
type PoolService interface {
	// Merge binds two or more products to one new pool. The new quantity is the sum of the
	// pools the merge absorbs completely; a pool that keeps other members keeps its quantity.
	Merge(ctx context.Context, scope Scope, productCodes []string) (*PoolView, error)
	// Split detaches a product from its pool into a new independent pool holding
	// DefaultSplitQuantity. A pool left without members is deleted.
	Split(ctx context.Context, scope Scope, productCode string) (*PoolView, error)
	// Provision creates an independent pool for a product that has none.
	Provision(ctx context.Context, scope Scope, productCode string, quantity int) (*PoolView, error)
	// SetQuantity overwrites the physical count of the product's pool.
	SetQuantity(ctx context.Context, scope Scope, productCode string, quantity int) (*PoolView, error)
	GetPool(ctx context.Context, scope Scope, productCode string) (*PoolView, error)
}

type poolService struct {
	store  Store
	locks  *KeyedLocker
	logger *zap.Logger
}

// NewPoolService constructs a PoolService. locks must be shared by every pool writer.
func NewPoolService(store Store, locks *KeyedLocker, logger *zap.Logger) PoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &poolService{store: store, locks: locks, logger: logger}
}

// ── Merge ────────────────────────────────────────────────────────────────────

func (s *poolService) Merge(ctx context.Context, scope Scope, productCodes []string) (*PoolView, error) {
	codes := normalizeCodes(productCodes)
	if len(codes) < 2 {
		return nil, invariantf("merge needs at least 2 distinct products, got %d", len(codes))
	}

	products, err := s.resolveAll(ctx, scope, codes)
	if err != nil {
		return nil, err
	}

	productKeys := make([]string, len(products))
	for i, p := range products {
		productKeys[i] = productKey(p.ID)
	}
	unlockProducts := s.locks.Lock(productKeys...)
	defer unlockProducts()

	// Pool membership can only change under the product lock, so re-read it now.
	if products, err = s.resolveAll(ctx, scope, codes); err != nil {
		return nil, err
	}
	named := make(map[int64]struct{}, len(products))
	var poolIDs []int64
	seenPool := make(map[int64]struct{})
	for _, p := range products {
		named[p.ID] = struct{}{}
		if p.PoolID == nil {
			continue
		}
		if _, ok := seenPool[*p.PoolID]; !ok {
			seenPool[*p.PoolID] = struct{}{}
			poolIDs = append(poolIDs, *p.PoolID)
		}
	}
	unlockPools := s.lockPools(poolIDs)
	defer unlockPools()

	var merged SharedPool
	err = s.store.WithTx(ctx, func(tx Store) error {
		total := 0
		var absorbed []int64
		for _, id := range poolIDs {
			pool, err := tx.GetPool(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load pool %d: %w", id, err)
			}
			if pool == nil {
				continue
			}
			members, err := tx.PoolMembers(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load pool %d members: %w", id, err)
			}
			remaining := 0
			for _, m := range members {
				if _, ok := named[m.ID]; !ok {
					remaining++
				}
			}
			if remaining == 0 {
				total += pool.Quantity
				absorbed = append(absorbed, id)
			}
		}

		merged, err = tx.CreatePool(ctx, total)
		if err != nil {
			return fmt.Errorf("failed to create pool: %w", err)
		}
		for _, p := range products {
			if err := tx.SetProductPool(ctx, p.ID, &merged.ID); err != nil {
				return fmt.Errorf("failed to attach %s to pool: %w", p.Code, err)
			}
		}
		for _, id := range absorbed {
			if err := tx.DeletePool(ctx, id); err != nil {
				return fmt.Errorf("failed to delete absorbed pool %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pools merged",
		zap.Strings("products", codes),
		zap.Int64("pool_id", merged.ID),
		zap.Int("quantity", merged.Quantity),
	)
	return &PoolView{ID: merged.ID, Quantity: merged.Quantity, MemberCodes: codes}, nil
}

// ── Split ────────────────────────────────────────────────────────────────────

func (s *poolService) Split(ctx context.Context, scope Scope, productCode string) (*PoolView, error) {
	p, unlock, err := s.lockProduct(ctx, scope, productCode)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if p.PoolID == nil {
		return nil, invariantf("product %s has no pool", p.Code)
	}
	unlockPool := s.lockPools([]int64{*p.PoolID})
	defer unlockPool()

	var detached SharedPool
	emptied := false
	err = s.store.WithTx(ctx, func(tx Store) error {
		members, err := tx.PoolMembers(ctx, *p.PoolID)
		if err != nil {
			return fmt.Errorf("failed to load pool %d members: %w", *p.PoolID, err)
		}
		detached, err = tx.CreatePool(ctx, DefaultSplitQuantity)
		if err != nil {
			return fmt.Errorf("failed to create pool: %w", err)
		}
		if err := tx.SetProductPool(ctx, p.ID, &detached.ID); err != nil {
			return fmt.Errorf("failed to move %s to its own pool: %w", p.Code, err)
		}
		if len(members) <= 1 {
			emptied = true
			if err := tx.DeletePool(ctx, *p.PoolID); err != nil {
				return fmt.Errorf("failed to delete emptied pool %d: %w", *p.PoolID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product split from pool",
		zap.String("product", p.Code),
		zap.Int64("from_pool_id", *p.PoolID),
		zap.Int64("pool_id", detached.ID),
		zap.Bool("from_pool_deleted", emptied),
	)
	return &PoolView{ID: detached.ID, Quantity: detached.Quantity, MemberCodes: []string{p.Code}}, nil
}

// ── Provisioning and inspection ──────────────────────────────────────────────

func (s *poolService) Provision(ctx context.Context, scope Scope, productCode string, quantity int) (*PoolView, error) {
	if quantity < 0 {
		return nil, validationf("pool quantity must be non-negative, got %d", quantity)
	}
	p, unlock, err := s.lockProduct(ctx, scope, productCode)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if p.PoolID != nil {
		return nil, invariantf("product %s already belongs to pool %d", p.Code, *p.PoolID)
	}

	var pool SharedPool
	err = s.store.WithTx(ctx, func(tx Store) error {
		var err error
		if pool, err = tx.CreatePool(ctx, quantity); err != nil {
			return fmt.Errorf("failed to create pool: %w", err)
		}
		if err := tx.SetProductPool(ctx, p.ID, &pool.ID); err != nil {
			return fmt.Errorf("failed to attach %s to pool: %w", p.Code, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PoolView{ID: pool.ID, Quantity: pool.Quantity, MemberCodes: []string{p.Code}}, nil
}

func (s *poolService) SetQuantity(ctx context.Context, scope Scope, productCode string, quantity int) (*PoolView, error) {
	if quantity < 0 {
		return nil, validationf("pool quantity must be non-negative, got %d", quantity)
	}
	p, unlock, err := s.lockProduct(ctx, scope, productCode)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if p.PoolID == nil {
		return nil, invariantf("product %s has no pool", p.Code)
	}
	unlockPool := s.lockPools([]int64{*p.PoolID})
	defer unlockPool()

	if err := s.store.SetPoolQuantity(ctx, *p.PoolID, quantity); err != nil {
		return nil, fmt.Errorf("failed to set pool quantity: %w", err)
	}
	return s.view(ctx, s.store, *p.PoolID)
}

func (s *poolService) GetPool(ctx context.Context, scope Scope, productCode string) (*PoolView, error) {
	p, err := s.resolve(ctx, scope, productCode)
	if err != nil {
		return nil, err
	}
	if p.PoolID == nil {
		return nil, notFoundf("pool of product %s", p.Code)
	}
	return s.view(ctx, s.store, *p.PoolID)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (s *poolService) view(ctx context.Context, store Store, poolID int64) (*PoolView, error) {
	pool, err := store.GetPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pool %d: %w", poolID, err)
	}
	if pool == nil {
		return nil, notFoundf("pool %d", poolID)
	}
	members, err := store.PoolMembers(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pool %d members: %w", poolID, err)
	}
	return &PoolView{ID: pool.ID, Quantity: pool.Quantity, MemberCodes: productCodes(members)}, nil
}

func (s *poolService) resolve(ctx context.Context, scope Scope, code string) (*Product, error) {
	code = strings.TrimSpace(code)
	p, err := s.store.ProductByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve product %s: %w", code, err)
	}
	if p == nil || !scope.allows(*p) {
		return nil, notFoundf("product %s", code)
	}
	return p, nil
}

func (s *poolService) resolveAll(ctx context.Context, scope Scope, codes []string) ([]Product, error) {
	out := make([]Product, 0, len(codes))
	for _, code := range codes {
		p, err := s.resolve(ctx, scope, code)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// lockProduct locks one product and returns its state as read under the lock.
func (s *poolService) lockProduct(ctx context.Context, scope Scope, code string) (*Product, func(), error) {
	p, err := s.resolve(ctx, scope, code)
	if err != nil {
		return nil, nil, err
	}
	unlock := s.locks.Lock(productKey(p.ID))
	if p, err = s.resolve(ctx, scope, code); err != nil {
		unlock()
		return nil, nil, err
	}
	return p, unlock, nil
}

func (s *poolService) lockPools(ids []int64) func() {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = poolKey(id)
	}
	return s.locks.Lock(keys...)
}

func normalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return sortedCopy(out)
}
