package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stock-engine/internal/core"
)

func TestNextSluggishDays(t *testing.T) {
	tests := []struct {
		name  string
		prev  *int
		stock int
		daily int
		want  int
	}{
		{"new record with stock and no sales", nil, 100, 0, 1},
		{"new record with sales", nil, 100, 5, 0},
		{"new record without stock", nil, 0, 0, 0},
		{"unsold cycle increments", intPtr(3), 10, 0, 4},
		{"sale resets", intPtr(9), 10, 1, 0},
		{"stock out resets", intPtr(9), 0, 0, 0},
		{"stock out with sales resets", intPtr(2), 0, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.NextSluggishDays(tt.prev, tt.stock, tt.daily))
		})
	}
}

func TestNextSluggishDays_RepeatedUnsoldCycles(t *testing.T) {
	var prev *int
	for cycle := 1; cycle <= 10; cycle++ {
		next := core.NextSluggishDays(prev, 50, 0)
		assert.Equal(t, cycle, next)
		prev = &next
	}
}

func TestWarehouseStockRecord_Flags(t *testing.T) {
	r := core.WarehouseStockRecord{StockQuantity: 5, ReorderThreshold: 5, SluggishDays: core.SluggishThresholdDays}
	assert.True(t, r.IsLowStock(), "stock equal to threshold is low")
	assert.False(t, r.IsSluggish(), "threshold days is not yet sluggish")

	r.StockQuantity, r.SluggishDays = 6, core.SluggishThresholdDays+1
	assert.False(t, r.IsLowStock())
	assert.True(t, r.IsSluggish())
}
