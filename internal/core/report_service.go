package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// StockQuery is a stock report request.
type StockQuery struct {
	WarehouseCode string
	Flags         StockFlags
	Product       ProductFilter
	SortBy        SortField
	Desc          bool
	Page          int
	PageSize      int // <= 0 disables pagination
}

// StockPage is one page of a stock report. Total counts every row before pagination.
type StockPage struct {
	Rows     []GroupedProductRecord
	Total    int
	Page     int
	PageSize int
}

// StatsCache stores computed statistics per query fingerprint. Implementations must
// tolerate concurrent use.
type StatsCache interface {
	// Generation returns the current cache generation. Keys embed it, so entries
	// written under an older generation are never read again.
	Generation(ctx context.Context) (int64, error)
	GetStatistics(ctx context.Context, key string) (*Statistics, bool, error)
	SetStatistics(ctx context.Context, key string, st Statistics) error
	// Invalidate advances the generation and drops every cached statistics entry.
	Invalidate(ctx context.Context) error
}

// StockQueryService answers filtered, grouped, sorted and paginated stock reports.
type StockQueryService interface {
	List(ctx context.Context, scope Scope, q StockQuery) (*StockPage, error)
	// Statistics runs the filter and aggregation stages only and returns the summed totals.
	Statistics(ctx context.Context, scope Scope, q StockQuery) (*Statistics, error)
	// Export runs List without pagination and renders the export table.
	Export(ctx context.Context, scope Scope, q StockQuery) ([][]string, error)
	// SetReorderThreshold updates the user-set threshold of one warehouse record.
	SetReorderThreshold(ctx context.Context, scope Scope, productCode, warehouseCode string, threshold int) error
}

type stockQueryService struct {
	store  Store
	cache  StatsCache
	group  singleflight.Group
	logger *zap.Logger
}

// NewStockQueryService constructs the report pipeline over store. cache may be nil.
func NewStockQueryService(store Store, cache StatsCache, logger *zap.Logger) StockQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &stockQueryService{store: store, cache: cache, logger: logger}
}

func (s *stockQueryService) List(ctx context.Context, scope Scope, q StockQuery) (*StockPage, error) {
	if !ValidSortField(q.SortBy) {
		return nil, validationf("unknown sort field %q", q.SortBy)
	}
	groups, err := s.groups(ctx, scope, q)
	if err != nil {
		return nil, err
	}

	SortGroups(groups, q.SortBy, q.Desc)
	page := q.Page
	if page < 1 {
		page = 1
	}
	rows := Paginate(groups, page, q.PageSize)
	if err := s.attachPools(ctx, rows); err != nil {
		return nil, err
	}
	return &StockPage{Rows: rows, Total: len(groups), Page: page, PageSize: q.PageSize}, nil
}

func (s *stockQueryService) Statistics(ctx context.Context, scope Scope, q StockQuery) (*Statistics, error) {
	gen, cacheable := int64(0), scope.Key != "" // anonymous scopes cannot share results with anyone
	if cacheable && s.cache != nil {
		var err error
		if gen, err = s.cache.Generation(ctx); err != nil {
			s.logger.Warn("statistics cache generation read failed", zap.Error(err))
			cacheable = false
		}
	}
	if !cacheable {
		groups, err := s.groups(ctx, scope, q)
		if err != nil {
			return nil, err
		}
		st := Summarize(groups)
		return &st, nil
	}

	// The generation is read before any stock data, so a computation racing an
	// invalidation can only write under the retired generation.
	key := statsKey(gen, scope, q)
	if s.cache != nil {
		st, ok, err := s.cache.GetStatistics(ctx, key)
		if err != nil {
			s.logger.Warn("statistics cache read failed", zap.Error(err))
		} else if ok {
			return st, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		groups, err := s.groups(ctx, scope, q)
		if err != nil {
			return nil, err
		}
		st := Summarize(groups)
		if s.cache != nil {
			if err := s.cache.SetStatistics(ctx, key, st); err != nil {
				s.logger.Warn("statistics cache write failed", zap.Error(err))
			}
		}
		return &st, nil
	})
	if err != nil {
		return nil, err
	}
	st := *v.(*Statistics)
	return &st, nil
}

func (s *stockQueryService) Export(ctx context.Context, scope Scope, q StockQuery) ([][]string, error) {
	q.Page, q.PageSize = 1, 0
	page, err := s.List(ctx, scope, q)
	if err != nil {
		return nil, err
	}
	return RenderExport(page.Rows), nil
}

func (s *stockQueryService) SetReorderThreshold(ctx context.Context, scope Scope, productCode, warehouseCode string, threshold int) error {
	if threshold < 0 {
		return validationf("reorder threshold must be non-negative, got %d", threshold)
	}
	p, err := s.store.ProductByCode(ctx, productCode)
	if err != nil {
		return fmt.Errorf("failed to resolve product %s: %w", productCode, err)
	}
	if p == nil || !scope.allows(*p) {
		return notFoundf("stock record %s/%s", productCode, warehouseCode)
	}
	ok, err := s.store.SetReorderThreshold(ctx, p.ID, warehouseCode, threshold)
	if err != nil {
		return fmt.Errorf("failed to update reorder threshold: %w", err)
	}
	if !ok {
		return notFoundf("stock record %s/%s", productCode, warehouseCode)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to invalidate statistics cache", zap.Error(err))
		}
	}
	return nil
}

// groups runs the filter, materialization and aggregation stages. Rows come back in product code order.
func (s *stockQueryService) groups(ctx context.Context, scope Scope, q StockQuery) ([]GroupedProductRecord, error) {
	all, err := s.store.ListStockRecords(ctx, RecordScan{WarehouseCode: q.WarehouseCode})
	if err != nil {
		return nil, fmt.Errorf("failed to scan stock records: %w", err)
	}
	candidates := make(map[int64]struct{})
	for _, id := range CandidateProducts(all, q.Flags) {
		candidates[id] = struct{}{}
	}
	if len(candidates) == 0 {
		return []GroupedProductRecord{}, nil
	}

	products, err := s.store.ListProducts(ctx, q.Product)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	surviving := products[:0:0]
	ids := make([]int64, 0, len(candidates))
	for _, p := range products {
		if _, ok := candidates[p.ID]; !ok || !scope.allows(p) {
			continue
		}
		surviving = append(surviving, p)
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return []GroupedProductRecord{}, nil
	}

	records, err := s.store.ListStockRecords(ctx, RecordScan{ProductIDs: ids, WarehouseCode: q.WarehouseCode})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stock records: %w", err)
	}
	return MaterializeGroups(surviving, records, q.Flags), nil
}

// attachPools fills pool membership for the rows of one page.
func (s *stockQueryService) attachPools(ctx context.Context, rows []GroupedProductRecord) error {
	views := make(map[int64]*PoolView)
	for i := range rows {
		poolID := rows[i].Product.PoolID
		if poolID == nil {
			continue
		}
		view, ok := views[*poolID]
		if !ok {
			pool, err := s.store.GetPool(ctx, *poolID)
			if err != nil {
				return fmt.Errorf("failed to load pool %d: %w", *poolID, err)
			}
			if pool == nil {
				views[*poolID] = nil
				continue
			}
			members, err := s.store.PoolMembers(ctx, *poolID)
			if err != nil {
				return fmt.Errorf("failed to load pool %d members: %w", *poolID, err)
			}
			view = &PoolView{ID: pool.ID, Quantity: pool.Quantity, MemberCodes: productCodes(members)}
			views[*poolID] = view
		}
		if view == nil {
			continue
		}
		qty := view.Quantity
		rows[i].PoolQuantity = &qty
		for _, code := range view.MemberCodes {
			if code != rows[i].Product.Code {
				rows[i].SharedWith = append(rows[i].SharedWith, code)
			}
		}
	}
	return nil
}

// statsKey fingerprints a statistics request. Fields are JSON-encoded so separators inside
// filter values cannot make two requests collide.
func statsKey(gen int64, scope Scope, q StockQuery) string {
	raw, _ := json.Marshal(struct {
		Gen         int64  `json:"g"`
		Scope       string `json:"s"`
		Warehouse   string `json:"w"`
		LowStock    string `json:"l"`
		Sluggish    string `json:"u"`
		Department  string `json:"d"`
		SKU         string `json:"k"`
		Responsible string `json:"r"`
		Shop        string `json:"p"`
	}{
		Gen:         gen,
		Scope:       scope.Key,
		Warehouse:   q.WarehouseCode,
		LowStock:    triState(q.Flags.IsLowStock),
		Sluggish:    triState(q.Flags.IsSluggish),
		Department:  q.Product.Department,
		SKU:         strings.ToLower(q.Product.SKUContains),
		Responsible: q.Product.ResponsiblePerson,
		Shop:        q.Product.ShopName,
	})
	sum := sha256.Sum256(raw)
	return strconv.FormatInt(gen, 10) + ":" + hex.EncodeToString(sum[:])
}

func triState(b *bool) string {
	if b == nil {
		return "-"
	}
	return strconv.FormatBool(*b)
}

func productCodes(products []Product) []string {
	codes := make([]string, len(products))
	for i, p := range products {
		codes[i] = p.Code
	}
	return codes
}
