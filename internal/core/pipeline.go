package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// StockFlags are the tri-state record predicates of a stock report. nil means "don't filter".
type StockFlags struct {
	IsLowStock *bool
	IsSluggish *bool
}

// Active reports whether any record-level predicate is set.
func (f StockFlags) Active() bool {
	return f.IsLowStock != nil || f.IsSluggish != nil
}

// SortField names one of the aggregate columns a report can be ordered by.
type SortField string

const (
	SortByTotalStock   SortField = "totalStockQuantity"
	SortByDailySales   SortField = "totalDailySales"
	SortByMonthlySales SortField = "totalMonthlySales"
	SortByValuation    SortField = "totalValuation"
)

// ValidSortField reports whether f is a recognised sort column. The empty field means "keep code order".
func ValidSortField(f SortField) bool {
	switch f {
	case "", SortByTotalStock, SortByDailySales, SortByMonthlySales, SortByValuation:
		return true
	}
	return false
}

// GroupedProductRecord is one report row: a product with its displayed warehouse records and their totals.
type GroupedProductRecord struct {
	Product            Product
	Records            []WarehouseStockRecord
	TotalStockQuantity int
	TotalDailySales    int
	TotalMonthlySales  int
	TotalValuation     *decimal.Decimal // nil when the product has no unit cost

	// Pool membership, reported only.
	PoolID       *int64
	PoolQuantity *int
	SharedWith   []string
}

// Statistics are the summed totals of a report without per-product rows.
type Statistics struct {
	ProductCount       int             `json:"product_count"`
	TotalStockQuantity int             `json:"total_stock_quantity"`
	TotalDailySales    int             `json:"total_daily_sales"`
	TotalMonthlySales  int             `json:"total_monthly_sales"`
	TotalValuation     decimal.Decimal `json:"total_valuation"`
}

// ── Stage 1: coarse product selection ────────────────────────────────────────

// RecordMatches applies the record-level predicates to a single warehouse record.
func RecordMatches(r WarehouseStockRecord, f StockFlags) bool {
	if f.IsLowStock != nil && r.IsLowStock() != *f.IsLowStock {
		return false
	}
	if f.IsSluggish != nil && r.IsSluggish() != *f.IsSluggish {
		return false
	}
	return true
}

// CandidateProducts selects product ids from records by the any/all rule:
// a true flag keeps products with at least one matching record, a false flag keeps
// products whose every record fails the predicate. The sluggish rule is applied to
// the survivors of the low-stock rule. Ids are returned in first-seen order.
func CandidateProducts(records []WarehouseStockRecord, f StockFlags) []int64 {
	var order []int64
	byProduct := make(map[int64][]WarehouseStockRecord)
	for _, r := range records {
		if _, ok := byProduct[r.ProductID]; !ok {
			order = append(order, r.ProductID)
		}
		byProduct[r.ProductID] = append(byProduct[r.ProductID], r)
	}

	out := order[:0:0]
	for _, id := range order {
		recs := byProduct[id]
		if !anyAll(recs, f.IsLowStock, WarehouseStockRecord.IsLowStock) {
			continue
		}
		if !anyAll(recs, f.IsSluggish, WarehouseStockRecord.IsSluggish) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func anyAll(recs []WarehouseStockRecord, want *bool, pred func(WarehouseStockRecord) bool) bool {
	if want == nil {
		return true
	}
	if *want {
		for _, r := range recs {
			if pred(r) {
				return true
			}
		}
		return false
	}
	for _, r := range recs {
		if pred(r) {
			return false
		}
	}
	return true
}

// ── Stage 3–4: materialization and aggregation ───────────────────────────────

// MaterializeGroups builds one row per product, in the order of products. With an active
// record-level filter only matching records are displayed, and products left with no
// displayed record are dropped.
func MaterializeGroups(products []Product, records []WarehouseStockRecord, f StockFlags) []GroupedProductRecord {
	byProduct := make(map[int64][]WarehouseStockRecord)
	for _, r := range records {
		if f.Active() && !RecordMatches(r, f) {
			continue
		}
		byProduct[r.ProductID] = append(byProduct[r.ProductID], r)
	}

	groups := make([]GroupedProductRecord, 0, len(products))
	for _, p := range products {
		recs := byProduct[p.ID]
		if len(recs) == 0 {
			continue
		}
		groups = append(groups, aggregate(p, recs))
	}
	return groups
}

func aggregate(p Product, recs []WarehouseStockRecord) GroupedProductRecord {
	g := GroupedProductRecord{Product: p, Records: recs, PoolID: p.PoolID}
	for _, r := range recs {
		g.TotalStockQuantity += r.StockQuantity
		g.TotalDailySales += r.DailySalesQuantity
		g.TotalMonthlySales += r.MonthlySalesQuantity
	}
	if p.UnitCost != nil {
		v := p.UnitCost.Mul(decimal.NewFromInt(int64(g.TotalStockQuantity)))
		g.TotalValuation = &v
	}
	return g
}

// Summarize sums the aggregates of every group. Groups without a valuation contribute nothing to it.
func Summarize(groups []GroupedProductRecord) Statistics {
	st := Statistics{ProductCount: len(groups), TotalValuation: decimal.Zero}
	for _, g := range groups {
		st.TotalStockQuantity += g.TotalStockQuantity
		st.TotalDailySales += g.TotalDailySales
		st.TotalMonthlySales += g.TotalMonthlySales
		if g.TotalValuation != nil {
			st.TotalValuation = st.TotalValuation.Add(*g.TotalValuation)
		}
	}
	return st
}

// ── Stage 5–6: sort and paginate ─────────────────────────────────────────────

// SortGroups orders groups in place by one aggregate. Ties keep their relative order;
// a nil valuation sorts last in either direction.
func SortGroups(groups []GroupedProductRecord, field SortField, desc bool) {
	if field == "" {
		return
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if field == SortByValuation {
			switch {
			case a.TotalValuation == nil:
				return false
			case b.TotalValuation == nil:
				return true
			}
			if desc {
				return a.TotalValuation.GreaterThan(*b.TotalValuation)
			}
			return a.TotalValuation.LessThan(*b.TotalValuation)
		}
		x, y := sortValue(a, field), sortValue(b, field)
		if desc {
			return x > y
		}
		return x < y
	})
}

func sortValue(g GroupedProductRecord, field SortField) int {
	switch field {
	case SortByDailySales:
		return g.TotalDailySales
	case SortByMonthlySales:
		return g.TotalMonthlySales
	default:
		return g.TotalStockQuantity
	}
}

// Paginate returns the 1-indexed page of size pageSize. pageSize <= 0 disables pagination.
func Paginate(groups []GroupedProductRecord, page, pageSize int) []GroupedProductRecord {
	if pageSize <= 0 {
		return groups
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(groups) {
		return []GroupedProductRecord{}
	}
	end := start + pageSize
	if end > len(groups) {
		end = len(groups)
	}
	return groups[start:end]
}
