package sheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRows(t *testing.T) {
	doc := "\ufeffSKU, Warehouse ,Stock\n" +
		"SKU1,North Hub,10\n" +
		",,\n" +
		"SKU2,上海仓\n"

	rows, err := ReadRows(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{"SKU": "SKU1", "Warehouse": "North Hub", "Stock": "10"}, rows[0])
	assert.Equal(t, "上海仓", rows[1]["Warehouse"])
	v, ok := rows[1]["Stock"]
	assert.True(t, ok, "short records keep every column")
	assert.Empty(t, v)
}

func TestReadRows_Errors(t *testing.T) {
	_, err := ReadRows(strings.NewReader(""))
	assert.EqualError(t, err, "empty document")

	_, err = ReadRows(strings.NewReader("SKU,Stock,SKU\nA,1,B\n"))
	assert.ErrorContains(t, err, `duplicate column "SKU"`)

	_, err = ReadRows(strings.NewReader("SKU,Stock\n\"unterminated,1\n"))
	assert.Error(t, err)
}

func TestReadRows_HeaderOnly(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("SKU,Stock\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteTable_GuardsFormulas(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTable(&buf, [][]string{
		{"SKU", "Name"},
		{"=HYPERLINK(\"x\")", "-5"},
		{"SKU1", "Plain, with comma"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SKU,Name\n"+
			"\"'=HYPERLINK(\"\"x\"\")\",'-5\n"+
			"SKU1,\"Plain, with comma\"\n",
		buf.String())
}

func TestSafe(t *testing.T) {
	assert.Equal(t, "", Safe(""))
	assert.Equal(t, "'@cmd", Safe("@cmd"))
	assert.Equal(t, "'+1", Safe("+1"))
	assert.Equal(t, "12", Safe("12"))
}
