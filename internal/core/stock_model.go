package core

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SluggishThresholdDays is the counter value above which a warehouse record counts as sluggish.
const SluggishThresholdDays = 7

// Product is the read-only view of a catalogue product owned by the product collaborator.
// PoolID is nil until the product is provisioned into the pooled-stock subsystem.
type Product struct {
	ID                int64
	Code              string // SKU, unique
	Name              string
	Department        string
	ResponsiblePerson string
	ShopName          string
	UnitCost          *decimal.Decimal // purchase unit cost; nil when unknown
	PoolID            *int64
}

// CodeMapping maps a foreign code used by an import source onto a Product.Code.
type CodeMapping struct {
	ExternalCode string
	Code         string
	CreatedAt    time.Time
}

// WarehouseStockRecord is one product's stock and sales counters in one warehouse.
// The pair (ProductID, WarehouseCode) is unique.
type WarehouseStockRecord struct {
	ProductID            int64
	WarehouseCode        string
	StockQuantity        int
	DailySalesQuantity   int
	MonthlySalesQuantity int
	ReorderThreshold     int // user-set; never written by imports
	SluggishDays         int // system-maintained; see NextSluggishDays
	UpdatedAt            time.Time
}

// IsLowStock reports whether the record is at or below its reorder threshold.
func (r WarehouseStockRecord) IsLowStock() bool {
	return r.StockQuantity <= r.ReorderThreshold
}

// IsSluggish reports whether the record has gone unsold for more than SluggishThresholdDays cycles.
func (r WarehouseStockRecord) IsSluggish() bool {
	return r.SluggishDays > SluggishThresholdDays
}

// SharedPool is a single physical quantity counter shared by its member products.
type SharedPool struct {
	ID       int64
	Quantity int
}

// PoolView is a pool together with its member product codes, sorted.
type PoolView struct {
	ID          int64
	Quantity    int
	MemberCodes []string
}

// IsShared reports whether more than one product draws from the pool.
func (p PoolView) IsShared() bool {
	return len(p.MemberCodes) >= 2
}

// Scope is the authorization collaborator's per-request visibility predicate.
// Key identifies the scope for caching; two scopes with the same Key must allow the same products.
type Scope struct {
	Key   string
	Allow func(Product) bool
}

// AllowAll is the unrestricted scope used by trusted callers such as the CLI.
var AllowAll = Scope{Key: "*", Allow: func(Product) bool { return true }}

// DepartmentScope restricts visibility to products belonging to one of the given departments.
func DepartmentScope(departments ...string) Scope {
	set := make(map[string]struct{}, len(departments))
	for _, d := range departments {
		set[d] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for d := range set {
		names = append(names, d)
	}
	sort.Strings(names)
	// JSON keeps department names containing commas distinct from department lists.
	encoded, _ := json.Marshal(names)
	return Scope{
		Key: "dept:" + string(encoded),
		Allow: func(p Product) bool {
			_, ok := set[p.Department]
			return ok
		},
	}
}

func (s Scope) allows(p Product) bool {
	if s.Allow == nil {
		return false
	}
	return s.Allow(p)
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
