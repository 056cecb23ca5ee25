package db

import (
	"context"
	"sort"
	"strings"
	"sync"

	"stock-engine/internal/core"
)

type memStockKey struct {
	productID int64
	warehouse string
}

type memData struct {
	products      map[int64]core.Product
	mappings      map[string]core.CodeMapping
	stock         map[memStockKey]core.WarehouseStockRecord
	pools         map[int64]core.SharedPool
	nextProductID int64
	nextPoolID    int64
}

func (d *memData) clone() *memData {
	c := &memData{
		products:      make(map[int64]core.Product, len(d.products)),
		mappings:      make(map[string]core.CodeMapping, len(d.mappings)),
		stock:         make(map[memStockKey]core.WarehouseStockRecord, len(d.stock)),
		pools:         make(map[int64]core.SharedPool, len(d.pools)),
		nextProductID: d.nextProductID,
		nextPoolID:    d.nextPoolID,
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.mappings {
		c.mappings[k] = v
	}
	for k, v := range d.stock {
		c.stock[k] = v
	}
	for k, v := range d.pools {
		c.pools[k] = v
	}
	return c
}

// MemoryStore is an in-process core.Store. Writers are serialized; a transaction works on a
// private copy that replaces the committed state only when fn succeeds. Readers see the last
// committed state.
type MemoryStore struct {
	txMu *sync.Mutex // nil inside a transaction
	mu   *sync.RWMutex
	data *memData
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		txMu: &sync.Mutex{},
		mu:   &sync.RWMutex{},
		data: &memData{
			products: make(map[int64]core.Product),
			mappings: make(map[string]core.CodeMapping),
			stock:    make(map[memStockKey]core.WarehouseStockRecord),
			pools:    make(map[int64]core.SharedPool),
		},
	}
}

// AddProduct stores a catalogue product, assigning an id when p.ID is zero.
// Products belong to the catalogue collaborator; this exists for tests and local runs.
func (s *MemoryStore) AddProduct(p core.Product) core.Product {
	_ = s.write(func(d *memData) error {
		if p.ID == 0 {
			d.nextProductID++
			p.ID = d.nextProductID
		} else if p.ID > d.nextProductID {
			d.nextProductID = p.ID
		}
		d.products[p.ID] = p
		return nil
	})
	return p
}

func (s *MemoryStore) read() (*memData, func()) {
	s.mu.RLock()
	return s.data, s.mu.RUnlock
}

func (s *MemoryStore) write(fn func(d *memData) error) error {
	if s.txMu != nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx core.Store) error) error {
	if s.txMu == nil {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	tx := &MemoryStore{mu: &sync.RWMutex{}, data: snapshot}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

// ── Products and code mappings ───────────────────────────────────────────────

func (s *MemoryStore) ProductByCode(ctx context.Context, code string) (*core.Product, error) {
	d, done := s.read()
	defer done()
	for _, p := range d.products {
		if p.Code == code {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ProductsByIDs(ctx context.Context, ids []int64) ([]core.Product, error) {
	d, done := s.read()
	defer done()
	out := make([]core.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := d.products[id]; ok {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context, f core.ProductFilter) ([]core.Product, error) {
	d, done := s.read()
	defer done()
	sku := strings.ToLower(f.SKUContains)
	var out []core.Product
	for _, p := range d.products {
		if f.Department != "" && p.Department != f.Department {
			continue
		}
		if sku != "" && !strings.Contains(strings.ToLower(p.Code), sku) {
			continue
		}
		if f.ResponsiblePerson != "" && p.ResponsiblePerson != f.ResponsiblePerson {
			continue
		}
		if f.ShopName != "" && p.ShopName != f.ShopName {
			continue
		}
		out = append(out, p)
	}
	sortProducts(out)
	return out, nil
}

func (s *MemoryStore) LookupCodeMapping(ctx context.Context, externalCode string) (*core.CodeMapping, error) {
	d, done := s.read()
	defer done()
	m, ok := d.mappings[externalCode]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *MemoryStore) InsertCodeMapping(ctx context.Context, m core.CodeMapping) error {
	return s.write(func(d *memData) error {
		if _, ok := d.mappings[m.ExternalCode]; ok {
			return core.ErrDuplicateKey
		}
		d.mappings[m.ExternalCode] = m
		return nil
	})
}

// ── Stock records ────────────────────────────────────────────────────────────

func (s *MemoryStore) GetStockRecord(ctx context.Context, productID int64, warehouseCode string) (*core.WarehouseStockRecord, error) {
	d, done := s.read()
	defer done()
	r, ok := d.stock[memStockKey{productID, warehouseCode}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *MemoryStore) UpsertStockRecord(ctx context.Context, rec core.WarehouseStockRecord) error {
	return s.write(func(d *memData) error {
		key := memStockKey{rec.ProductID, rec.WarehouseCode}
		if existing, ok := d.stock[key]; ok {
			rec.ReorderThreshold = existing.ReorderThreshold
		} else {
			rec.ReorderThreshold = 0
		}
		d.stock[key] = rec
		return nil
	})
}

func (s *MemoryStore) SetReorderThreshold(ctx context.Context, productID int64, warehouseCode string, threshold int) (bool, error) {
	found := false
	err := s.write(func(d *memData) error {
		key := memStockKey{productID, warehouseCode}
		rec, ok := d.stock[key]
		if !ok {
			return nil
		}
		rec.ReorderThreshold = threshold
		d.stock[key] = rec
		found = true
		return nil
	})
	return found, err
}

func (s *MemoryStore) ListStockRecords(ctx context.Context, scan core.RecordScan) ([]core.WarehouseStockRecord, error) {
	if scan.ProductIDs != nil && len(scan.ProductIDs) == 0 {
		return []core.WarehouseStockRecord{}, nil
	}
	var wanted map[int64]struct{}
	if scan.ProductIDs != nil {
		wanted = make(map[int64]struct{}, len(scan.ProductIDs))
		for _, id := range scan.ProductIDs {
			wanted[id] = struct{}{}
		}
	}

	d, done := s.read()
	defer done()
	out := make([]core.WarehouseStockRecord, 0, len(d.stock))
	for _, r := range d.stock {
		if scan.WarehouseCode != "" && r.WarehouseCode != scan.WarehouseCode {
			continue
		}
		if wanted != nil {
			if _, ok := wanted[r.ProductID]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].WarehouseCode < out[j].WarehouseCode
	})
	return out, nil
}

// ── Pools ────────────────────────────────────────────────────────────────────

func (s *MemoryStore) GetPool(ctx context.Context, poolID int64) (*core.SharedPool, error) {
	d, done := s.read()
	defer done()
	p, ok := d.pools[poolID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) CreatePool(ctx context.Context, quantity int) (core.SharedPool, error) {
	var pool core.SharedPool
	err := s.write(func(d *memData) error {
		d.nextPoolID++
		pool = core.SharedPool{ID: d.nextPoolID, Quantity: quantity}
		d.pools[pool.ID] = pool
		return nil
	})
	return pool, err
}

func (s *MemoryStore) SetPoolQuantity(ctx context.Context, poolID int64, quantity int) error {
	return s.write(func(d *memData) error {
		p, ok := d.pools[poolID]
		if !ok {
			return nil
		}
		p.Quantity = quantity
		d.pools[poolID] = p
		return nil
	})
}

func (s *MemoryStore) DeletePool(ctx context.Context, poolID int64) error {
	return s.write(func(d *memData) error {
		delete(d.pools, poolID)
		return nil
	})
}

func (s *MemoryStore) PoolMembers(ctx context.Context, poolID int64) ([]core.Product, error) {
	d, done := s.read()
	defer done()
	var out []core.Product
	for _, p := range d.products {
		if p.PoolID != nil && *p.PoolID == poolID {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out, nil
}

func (s *MemoryStore) SetProductPool(ctx context.Context, productID int64, poolID *int64) error {
	return s.write(func(d *memData) error {
		p, ok := d.products[productID]
		if !ok {
			return nil
		}
		if poolID == nil {
			p.PoolID = nil
		} else {
			id := *poolID
			p.PoolID = &id
		}
		d.products[productID] = p
		return nil
	})
}

func sortProducts(ps []core.Product) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Code < ps[j].Code })
}
