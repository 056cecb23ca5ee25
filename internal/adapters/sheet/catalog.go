package sheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"stock-engine/internal/core"
)

// Catalogue sheet columns. Only SKU is required.
const (
	CatalogCode              = "SKU"
	CatalogName              = "Name"
	CatalogDepartment        = "Department"
	CatalogResponsiblePerson = "Responsible Person"
	CatalogShopName          = "Shop Name"
	CatalogUnitCost          = "Unit Cost"
)

// ReadCatalog parses a catalogue CSV into products. A blank unit cost leaves UnitCost nil.
// Errors name the 1-based line, counting the header as line 1.
func ReadCatalog(r io.Reader) ([]core.Product, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}

	products := make([]core.Product, 0, len(rows))
	seen := make(map[string]int, len(rows))
	for i, row := range rows {
		line := i + 2
		code := strings.TrimSpace(row[CatalogCode])
		if code == "" {
			return nil, fmt.Errorf("line %d: missing %s", line, CatalogCode)
		}
		if first, dup := seen[code]; dup {
			return nil, fmt.Errorf("line %d: %s %s already listed on line %d", line, CatalogCode, code, first)
		}
		seen[code] = line

		p := core.Product{
			Code:              code,
			Name:              strings.TrimSpace(row[CatalogName]),
			Department:        strings.TrimSpace(row[CatalogDepartment]),
			ResponsiblePerson: strings.TrimSpace(row[CatalogResponsiblePerson]),
			ShopName:          strings.TrimSpace(row[CatalogShopName]),
		}
		if raw := strings.TrimSpace(row[CatalogUnitCost]); raw != "" {
			cost, err := decimal.NewFromString(raw)
			if err != nil || cost.IsNegative() {
				return nil, fmt.Errorf("line %d: invalid %s %q", line, CatalogUnitCost, raw)
			}
			p.UnitCost = &cost
		}
		products = append(products, p)
	}
	return products, nil
}
