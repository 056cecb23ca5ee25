package core

import (
	"context"
	"errors"
)

// ErrDuplicateKey is returned by a Store when an insert violates a unique constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// ProductFilter holds the product-attribute predicates of a stock report.
// Empty fields do not filter.
type ProductFilter struct {
	Department        string
	SKUContains       string // case-insensitive substring of Product.Code
	ResponsiblePerson string
	ShopName          string
}

// RecordScan narrows a stock record fetch. A nil ProductIDs slice means all products;
// an empty non-nil slice matches nothing.
type RecordScan struct {
	ProductIDs    []int64
	WarehouseCode string
}

// Store is the relational store as seen by this engine: ordered, transactional,
// with unique constraints and upsert. Single-row lookups return (nil, nil) when absent.
type Store interface {
	// WithTx runs fn inside one transaction. fn's Store is bound to the transaction;
	// a non-nil error from fn rolls everything back.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	ProductByCode(ctx context.Context, code string) (*Product, error)
	ProductsByIDs(ctx context.Context, ids []int64) ([]Product, error)
	// ListProducts returns products matching f, ordered by code.
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, error)

	LookupCodeMapping(ctx context.Context, externalCode string) (*CodeMapping, error)
	// InsertCodeMapping returns ErrDuplicateKey when ExternalCode already exists.
	InsertCodeMapping(ctx context.Context, m CodeMapping) error

	// GetStockRecord locks the record for update when called inside WithTx.
	GetStockRecord(ctx context.Context, productID int64, warehouseCode string) (*WarehouseStockRecord, error)
	// UpsertStockRecord writes counters and SluggishDays. ReorderThreshold is kept on update
	// and defaults to 0 on insert.
	UpsertStockRecord(ctx context.Context, rec WarehouseStockRecord) error
	// SetReorderThreshold returns false when no record exists for the key.
	SetReorderThreshold(ctx context.Context, productID int64, warehouseCode string, threshold int) (bool, error)
	// ListStockRecords returns records ordered by product id, then warehouse code.
	ListStockRecords(ctx context.Context, scan RecordScan) ([]WarehouseStockRecord, error)

	GetPool(ctx context.Context, poolID int64) (*SharedPool, error)
	CreatePool(ctx context.Context, quantity int) (SharedPool, error)
	SetPoolQuantity(ctx context.Context, poolID int64, quantity int) error
	DeletePool(ctx context.Context, poolID int64) error
	// PoolMembers returns the pool's member products ordered by code.
	PoolMembers(ctx context.Context, poolID int64) ([]Product, error)
	// SetProductPool moves a product into poolID, or out of every pool when poolID is nil.
	SetProductPool(ctx context.Context, productID int64, poolID *int64) error
}
