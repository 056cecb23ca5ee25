package app

import (
	"time"

	"stock-engine/internal/core"
)

// StockListResult is returned by ListStock.
type StockListResult struct {
	Page *core.StockPage
}

// ExportResult is returned by ExportStock. Rows[0] is the header.
type ExportResult struct {
	Rows [][]string
}

// PoolResult is returned by pool operations.
type PoolResult struct {
	PoolID      int64    `json:"pool_id"`
	Quantity    int      `json:"quantity"`
	MemberCodes []string `json:"member_codes"`
	IsShared    bool     `json:"is_shared"`
}

func newPoolResult(v *core.PoolView) *PoolResult {
	return &PoolResult{PoolID: v.ID, Quantity: v.Quantity, MemberCodes: v.MemberCodes, IsShared: v.IsShared()}
}

// CodeMappingResult is returned by AddCodeMapping.
type CodeMappingResult struct {
	ExternalCode string    `json:"external_code"`
	ProductCode  string    `json:"product_code"`
	CreatedAt    time.Time `json:"created_at"`
}
