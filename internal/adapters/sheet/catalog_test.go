package sheet

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCatalog(t *testing.T) {
	doc := "SKU,Name,Department,Responsible Person,Shop Name,Unit Cost\n" +
		"SKU1,Bolt,A,Lin,East,2.50\n" +
		"SKU2,Nut,A,,,\n"

	products, err := ReadCatalog(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Bolt", products[0].Name)
	assert.Equal(t, "Lin", products[0].ResponsiblePerson)
	require.NotNil(t, products[0].UnitCost)
	assert.True(t, products[0].UnitCost.Equal(decimal.RequireFromString("2.5")))
	assert.Nil(t, products[1].UnitCost)
}

func TestReadCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing code", "SKU,Name\n,Bolt\n", "line 2: missing SKU"},
		{"duplicate code", "SKU\nA\nB\nA\n", "line 4: SKU A already listed on line 2"},
		{"bad cost", "SKU,Unit Cost\nA,cheap\n", `invalid Unit Cost "cheap"`},
		{"negative cost", "SKU,Unit Cost\nA,-1\n", "invalid Unit Cost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCatalog(strings.NewReader(tt.doc))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
