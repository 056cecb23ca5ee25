package repl

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-engine/internal/app"
	"stock-engine/internal/config"
	"stock-engine/internal/core"
	"stock-engine/internal/db"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"pool SKU1", []string{"pool", "SKU1"}},
		{`threshold SKU1 "North Hub"  5`, []string{"threshold", "SKU1", "North Hub", "5"}},
		{"export -warehouse 'South Yard'", []string{"export", "-warehouse", "South Yard"}},
		{`map "" SKU1`, []string{"map", "", "SKU1"}},
	}
	for _, tt := range tests {
		got, err := splitArgs(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}

	_, err := splitArgs(`pool "SKU1`)
	assert.ErrorContains(t, err, "unterminated")
}

func TestRun_Session(t *testing.T) {
	store := db.NewMemoryStore()
	store.AddProduct(core.Product{Code: "SKU1"})
	store.AddProduct(core.Product{Code: "SKU2"})
	svc := app.New(store, nil, &config.Config{}, nil)

	in := strings.NewReader(strings.Join([]string{
		"/provision SKU1 3",
		"provision SKU2 4",
		"",
		"/merge SKU1 SKU2",
		"/bogus",
		"/help",
		"/exit",
		"/pool SKU1",
	}, "\n"))
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), svc, in, &out))

	text := out.String()
	assert.Contains(t, text, "(shared): quantity 7, members SKU1, SKU2")
	assert.Contains(t, text, "Error: unknown command: bogus")
	assert.Contains(t, text, "COMMANDS")
	assert.Contains(t, text, "Goodbye!")
	assert.Equal(t, 1, strings.Count(text, "members SKU1, SKU2"), "nothing runs after exit")
}

func TestRun_StopsAtEOF(t *testing.T) {
	svc := app.New(db.NewMemoryStore(), nil, &config.Config{}, nil)
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), svc, strings.NewReader("/pool SKU1"), &out))
	assert.Contains(t, out.String(), "Error: pool lookup failed")
}
