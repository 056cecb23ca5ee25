package app

// ImportStockRequest carries one decoded snapshot batch. Each row maps header cells to values.
type ImportStockRequest struct {
	Rows []map[string]string
}

// StockListRequest is the adapter-facing form of a stock report query.
type StockListRequest struct {
	WarehouseCode     string
	IsLowStock        *bool
	IsSluggish        *bool
	Department        string
	SKU               string
	ResponsiblePerson string
	ShopName          string
	SortBy            string
	Order             string // "asc" (default) or "desc"
	Page              int
	PageSize          int // 0 means the configured default
}

// SetThresholdRequest is the input for updating a reorder threshold.
type SetThresholdRequest struct {
	ProductCode   string
	WarehouseCode string
	Threshold     int
}

// MergePoolsRequest lists the products to bind to one pool.
type MergePoolsRequest struct {
	ProductCodes []string
}

// PoolQuantityRequest targets the pool of one product.
type PoolQuantityRequest struct {
	ProductCode string
	Quantity    int
}

// CodeMappingRequest maps a foreign code onto a SKU.
type CodeMappingRequest struct {
	ExternalCode string
	ProductCode  string
}
