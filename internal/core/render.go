package core

import (
	"strconv"
	"strings"
	"time"
)

// ExportHeader is the header row of a stock export.
var ExportHeader = []string{
	"SKU", "Name", "Department", "Warehouse",
	"Stock", "Daily Sales", "Monthly Sales", "Reorder Threshold", "Sluggish Days",
	"Total Stock", "Total Valuation", "Shared With",
}

// RenderExport flattens report rows into a table with one line per displayed warehouse record.
// Product-level totals repeat on every line of the product.
func RenderExport(groups []GroupedProductRecord) [][]string {
	out := make([][]string, 0, len(groups)+1)
	out = append(out, ExportHeader)
	for _, g := range groups {
		valuation := ""
		if g.TotalValuation != nil {
			valuation = g.TotalValuation.StringFixed(2)
		}
		for _, r := range g.Records {
			out = append(out, []string{
				g.Product.Code,
				g.Product.Name,
				g.Product.Department,
				r.WarehouseCode,
				strconv.Itoa(r.StockQuantity),
				strconv.Itoa(r.DailySalesQuantity),
				strconv.Itoa(r.MonthlySalesQuantity),
				strconv.Itoa(r.ReorderThreshold),
				strconv.Itoa(r.SluggishDays),
				strconv.Itoa(g.TotalStockQuantity),
				valuation,
				strings.Join(g.SharedWith, " "),
			})
		}
	}
	return out
}

// StockRecordView is one warehouse line of an interactive report row.
type StockRecordView struct {
	WarehouseCode        string `json:"warehouse_code"`
	StockQuantity        int    `json:"stock_quantity"`
	DailySalesQuantity   int    `json:"daily_sales_quantity"`
	MonthlySalesQuantity int    `json:"monthly_sales_quantity"`
	ReorderThreshold     int    `json:"reorder_threshold"`
	SluggishDays         int    `json:"sluggish_days"`
	IsLowStock           bool   `json:"is_low_stock"`
	IsSluggish           bool   `json:"is_sluggish"`
	UpdatedAt            string `json:"updated_at"`
}

// StockRowView is one product row of an interactive report page.
type StockRowView struct {
	ProductCode        string            `json:"product_code"`
	ProductName        string            `json:"product_name"`
	Department         string            `json:"department"`
	ResponsiblePerson  string            `json:"responsible_person"`
	ShopName           string            `json:"shop_name"`
	Records            []StockRecordView `json:"records"`
	TotalStockQuantity int               `json:"total_stock_quantity"`
	TotalDailySales    int               `json:"total_daily_sales"`
	TotalMonthlySales  int               `json:"total_monthly_sales"`
	TotalValuation     *string           `json:"total_valuation"`
	PoolID             *int64            `json:"pool_id,omitempty"`
	PoolQuantity       *int              `json:"pool_quantity,omitempty"`
	SharedWith         []string          `json:"shared_with,omitempty"`
}

// StockPageView is the JSON shape of a paginated report.
type StockPageView struct {
	Rows     []StockRowView `json:"rows"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// RenderPage converts a report page into its interactive view.
func RenderPage(page *StockPage) StockPageView {
	view := StockPageView{Rows: make([]StockRowView, 0, len(page.Rows)), Total: page.Total, Page: page.Page, PageSize: page.PageSize}
	for _, g := range page.Rows {
		row := StockRowView{
			ProductCode:        g.Product.Code,
			ProductName:        g.Product.Name,
			Department:         g.Product.Department,
			ResponsiblePerson:  g.Product.ResponsiblePerson,
			ShopName:           g.Product.ShopName,
			Records:            make([]StockRecordView, 0, len(g.Records)),
			TotalStockQuantity: g.TotalStockQuantity,
			TotalDailySales:    g.TotalDailySales,
			TotalMonthlySales:  g.TotalMonthlySales,
			PoolID:             g.PoolID,
			PoolQuantity:       g.PoolQuantity,
			SharedWith:         g.SharedWith,
		}
		if g.TotalValuation != nil {
			v := g.TotalValuation.StringFixed(2)
			row.TotalValuation = &v
		}
		for _, r := range g.Records {
			row.Records = append(row.Records, StockRecordView{
				WarehouseCode:        r.WarehouseCode,
				StockQuantity:        r.StockQuantity,
				DailySalesQuantity:   r.DailySalesQuantity,
				MonthlySalesQuantity: r.MonthlySalesQuantity,
				ReorderThreshold:     r.ReorderThreshold,
				SluggishDays:         r.SluggishDays,
				IsLowStock:           r.IsLowStock(),
				IsSluggish:           r.IsSluggish(),
				UpdatedAt:            r.UpdatedAt.Format(time.RFC3339),
			})
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}
