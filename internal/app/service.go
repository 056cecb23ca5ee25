package app

import (
	"context"

	"stock-engine/internal/core"
)

// ApplicationService is the single interface the CLI and web adapters call.
// Implementations carry no display logic; every read and write is evaluated
// against the caller's core.Scope.
type ApplicationService interface {
	// ImportStock reconciles one snapshot batch into warehouse stock records.
	// Rows naming products outside scope fail as unresolved.
	ImportStock(ctx context.Context, scope core.Scope, req ImportStockRequest) (*core.ImportResult, error)

	// ListStock returns one page of the grouped stock report.
	ListStock(ctx context.Context, scope core.Scope, req StockListRequest) (*StockListResult, error)

	// GetStatistics returns the report totals for the same filters as ListStock.
	GetStatistics(ctx context.Context, scope core.Scope, req StockListRequest) (*core.Statistics, error)

	// ExportStock returns every matching report line as a table, header first.
	ExportStock(ctx context.Context, scope core.Scope, req StockListRequest) (*ExportResult, error)

	// SetReorderThreshold updates the threshold of one warehouse record.
	SetReorderThreshold(ctx context.Context, scope core.Scope, req SetThresholdRequest) error

	MergePools(ctx context.Context, scope core.Scope, req MergePoolsRequest) (*PoolResult, error)
	SplitPool(ctx context.Context, scope core.Scope, productCode string) (*PoolResult, error)
	ProvisionPool(ctx context.Context, scope core.Scope, req PoolQuantityRequest) (*PoolResult, error)
	SetPoolQuantity(ctx context.Context, scope core.Scope, req PoolQuantityRequest) (*PoolResult, error)
	GetPool(ctx context.Context, scope core.Scope, productCode string) (*PoolResult, error)

	// AddCodeMapping registers an external code for an existing product.
	AddCodeMapping(ctx context.Context, scope core.Scope, req CodeMappingRequest) (*CodeMappingResult, error)
}
