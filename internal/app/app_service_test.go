package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-engine/internal/config"
	"stock-engine/internal/core"
	"stock-engine/internal/db"
)

func TestBuildQuery_Paging(t *testing.T) {
	s := &appService{report: config.ReportConfig{DefaultPageSize: 20, MaxPageSize: 200}}

	tests := []struct {
		name         string
		req          StockListRequest
		wantPage     int
		wantPageSize int
	}{
		{"defaults", StockListRequest{}, 1, 20},
		{"explicit", StockListRequest{Page: 3, PageSize: 50}, 3, 50},
		{"clamped", StockListRequest{PageSize: 5000}, 1, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := s.buildQuery(tt.req, true)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, q.Page)
			assert.Equal(t, tt.wantPageSize, q.PageSize)
		})
	}

	q, err := s.buildQuery(StockListRequest{Page: 4, PageSize: 10}, false)
	require.NoError(t, err)
	assert.Zero(t, q.PageSize, "unpaged queries cover every row")
}

func TestBuildQuery_Normalizes(t *testing.T) {
	s := &appService{}
	low := true
	q, err := s.buildQuery(StockListRequest{
		WarehouseCode: " North Hub ",
		IsLowStock:    &low,
		Department:    " A ",
		SKU:           " sku ",
		SortBy:        string(core.SortByValuation),
		Order:         "DESC",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "No", q.WarehouseCode)
	assert.Equal(t, "A", q.Product.Department)
	assert.Equal(t, "sku", q.Product.SKUContains)
	assert.Equal(t, core.SortByValuation, q.SortBy)
	assert.True(t, q.Desc)
	assert.Same(t, &low, q.Flags.IsLowStock)
}

func TestBuildQuery_Rejects(t *testing.T) {
	s := &appService{}
	for _, req := range []StockListRequest{
		{SortBy: "name"},
		{Order: "up"},
		{Page: -1},
		{PageSize: -5},
	} {
		_, err := s.buildQuery(req, true)
		assert.True(t, errors.Is(err, core.ErrValidation), "%+v", req)
	}
}

func TestNew_WiresImportOptions(t *testing.T) {
	store := db.NewMemoryStore()
	store.AddProduct(core.Product{Code: "SKU1"})
	cfg := &config.Config{
		Import: config.ImportConfig{MaxRows: 1, AggregateWarehouse: "总部仓"},
		Report: config.ReportConfig{DefaultPageSize: 20, MaxPageSize: 200},
	}
	svc := New(store, nil, cfg, nil)
	ctx := context.Background()

	row := func(wh string) map[string]string {
		return map[string]string{"SKU": "SKU1", "Warehouse": wh, "Stock": "1", "Daily Sales": "0", "Monthly Sales": "0"}
	}
	_, err := svc.ImportStock(ctx, core.AllowAll, ImportStockRequest{Rows: []map[string]string{row("No"), row("So")}})
	assert.True(t, errors.Is(err, core.ErrValidation), "row limit comes from config")

	res, err := svc.ImportStock(ctx, core.AllowAll, ImportStockRequest{Rows: []map[string]string{row("总部")}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped, "aggregate warehouse comes from config")
}

func TestAddCodeMapping_Result(t *testing.T) {
	store := db.NewMemoryStore()
	store.AddProduct(core.Product{Code: "SKU1"})
	svc := New(store, nil, &config.Config{}, nil)

	res, err := svc.AddCodeMapping(context.Background(), core.AllowAll, CodeMappingRequest{ExternalCode: "E1", ProductCode: "SKU1"})
	require.NoError(t, err)
	assert.Equal(t, "E1", res.ExternalCode)
	assert.Equal(t, "SKU1", res.ProductCode)
}
