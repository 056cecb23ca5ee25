package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"stock-engine/internal/config"
	"stock-engine/internal/core"
)

type appService struct {
	imports  core.StockImportService
	reports  core.StockQueryService
	pools    core.PoolService
	mappings core.CodeMappingService
	report   config.ReportConfig
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	imports core.StockImportService,
	reports core.StockQueryService,
	pools core.PoolService,
	mappings core.CodeMappingService,
	report config.ReportConfig,
) ApplicationService {
	return &appService{
		imports:  imports,
		reports:  reports,
		pools:    pools,
		mappings: mappings,
		report:   report,
	}
}

// New wires every domain service over one store. All writers share a single lock arena.
// cache may be nil.
func New(store core.Store, cache core.StatsCache, cfg *config.Config, logger *zap.Logger) ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	locks := core.NewKeyedLocker()

	opts := core.DefaultImportOptions()
	if cfg.Import.MaxRows > 0 {
		opts.MaxRows = cfg.Import.MaxRows
	}
	if cfg.Import.ErrorLimit > 0 {
		opts.ErrorLimit = cfg.Import.ErrorLimit
	}
	if cfg.Import.AggregateWarehouse != "" {
		opts.AggregateWarehouse = core.NormalizeWarehouseCode(cfg.Import.AggregateWarehouse)
	}

	return NewAppService(
		core.NewStockImportService(store, locks, cache, opts, logger.Named("import")),
		core.NewStockQueryService(store, cache, logger.Named("report")),
		core.NewPoolService(store, locks, logger.Named("pool")),
		core.NewCodeMappingService(store, logger.Named("mapping")),
		cfg.Report,
	)
}

// ImportStock reconciles one snapshot batch.
func (s *appService) ImportStock(ctx context.Context, scope core.Scope, req ImportStockRequest) (*core.ImportResult, error) {
	return s.imports.Import(ctx, scope, req.Rows)
}

// ListStock returns one page of the grouped stock report.
func (s *appService) ListStock(ctx context.Context, scope core.Scope, req StockListRequest) (*StockListResult, error) {
	q, err := s.buildQuery(req, true)
	if err != nil {
		return nil, err
	}
	page, err := s.reports.List(ctx, scope, q)
	if err != nil {
		return nil, err
	}
	return &StockListResult{Page: page}, nil
}

func (s *appService) GetStatistics(ctx context.Context, scope core.Scope, req StockListRequest) (*core.Statistics, error) {
	q, err := s.buildQuery(req, false)
	if err != nil {
		return nil, err
	}
	return s.reports.Statistics(ctx, scope, q)
}

func (s *appService) ExportStock(ctx context.Context, scope core.Scope, req StockListRequest) (*ExportResult, error) {
	q, err := s.buildQuery(req, false)
	if err != nil {
		return nil, err
	}
	rows, err := s.reports.Export(ctx, scope, q)
	if err != nil {
		return nil, err
	}
	return &ExportResult{Rows: rows}, nil
}

func (s *appService) SetReorderThreshold(ctx context.Context, scope core.Scope, req SetThresholdRequest) error {
	return s.reports.SetReorderThreshold(ctx, scope,
		strings.TrimSpace(req.ProductCode), core.NormalizeWarehouseCode(req.WarehouseCode), req.Threshold)
}

// ── Pools ────────────────────────────────────────────────────────────────────

func (s *appService) MergePools(ctx context.Context, scope core.Scope, req MergePoolsRequest) (*PoolResult, error) {
	v, err := s.pools.Merge(ctx, scope, req.ProductCodes)
	if err != nil {
		return nil, err
	}
	return newPoolResult(v), nil
}

func (s *appService) SplitPool(ctx context.Context, scope core.Scope, productCode string) (*PoolResult, error) {
	v, err := s.pools.Split(ctx, scope, productCode)
	if err != nil {
		return nil, err
	}
	return newPoolResult(v), nil
}

func (s *appService) ProvisionPool(ctx context.Context, scope core.Scope, req PoolQuantityRequest) (*PoolResult, error) {
	v, err := s.pools.Provision(ctx, scope, req.ProductCode, req.Quantity)
	if err != nil {
		return nil, err
	}
	return newPoolResult(v), nil
}

func (s *appService) SetPoolQuantity(ctx context.Context, scope core.Scope, req PoolQuantityRequest) (*PoolResult, error) {
	v, err := s.pools.SetQuantity(ctx, scope, req.ProductCode, req.Quantity)
	if err != nil {
		return nil, err
	}
	return newPoolResult(v), nil
}

func (s *appService) GetPool(ctx context.Context, scope core.Scope, productCode string) (*PoolResult, error) {
	v, err := s.pools.GetPool(ctx, scope, productCode)
	if err != nil {
		return nil, err
	}
	return newPoolResult(v), nil
}

// ── Code mappings ────────────────────────────────────────────────────────────

func (s *appService) AddCodeMapping(ctx context.Context, scope core.Scope, req CodeMappingRequest) (*CodeMappingResult, error) {
	m, err := s.mappings.AddCodeMapping(ctx, scope, req.ExternalCode, req.ProductCode)
	if err != nil {
		return nil, err
	}
	return &CodeMappingResult{ExternalCode: m.ExternalCode, ProductCode: m.Code, CreatedAt: m.CreatedAt}, nil
}

// buildQuery validates req and applies paging defaults. Without paged, the query covers every row.
func (s *appService) buildQuery(req StockListRequest, paged bool) (core.StockQuery, error) {
	q := core.StockQuery{
		WarehouseCode: core.NormalizeWarehouseCode(req.WarehouseCode),
		Flags:         core.StockFlags{IsLowStock: req.IsLowStock, IsSluggish: req.IsSluggish},
		Product: core.ProductFilter{
			Department:        strings.TrimSpace(req.Department),
			SKUContains:       strings.TrimSpace(req.SKU),
			ResponsiblePerson: strings.TrimSpace(req.ResponsiblePerson),
			ShopName:          strings.TrimSpace(req.ShopName),
		},
		SortBy: core.SortField(req.SortBy),
	}
	if !core.ValidSortField(q.SortBy) {
		return q, fmt.Errorf("%w: unknown sort field %q", core.ErrValidation, req.SortBy)
	}
	switch strings.ToLower(req.Order) {
	case "", "asc":
	case "desc":
		q.Desc = true
	default:
		return q, fmt.Errorf("%w: order must be asc or desc", core.ErrValidation)
	}

	if !paged {
		return q, nil
	}
	if req.Page < 0 || req.PageSize < 0 {
		return q, fmt.Errorf("%w: page and page size must be positive", core.ErrValidation)
	}
	q.Page = req.Page
	if q.Page == 0 {
		q.Page = 1
	}
	q.PageSize = req.PageSize
	if q.PageSize == 0 {
		q.PageSize = s.report.DefaultPageSize
	}
	if s.report.MaxPageSize > 0 && q.PageSize > s.report.MaxPageSize {
		q.PageSize = s.report.MaxPageSize
	}
	return q, nil
}
