package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnv_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "SERVER_ADDR", "REDIS_ADDR", "IMPORT_MAX_ROWS", "REPORT_MAX_PAGE_SIZE", "ALLOWED_ORIGINS", "DATABASE_MIN_CONNS"} {
		t.Setenv(key, "")
	}
	t.Setenv("APP_ENV", "dev")

	cfg := LoadEnv()
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "", cfg.Redis.Addr, "cache disabled without an address")
	assert.Equal(t, 300*time.Second, cfg.Redis.TTL)
	assert.Equal(t, "全国", cfg.Import.AggregateWarehouse)
	assert.Equal(t, 20, cfg.Import.ErrorLimit)
	assert.Equal(t, 0, cfg.Postgres.MinConns)
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("REDIS_TTL_SECONDS", "60")
	t.Setenv("IMPORT_MAX_ROWS", "500")
	t.Setenv("REPORT_MAX_PAGE_SIZE", "not-a-number")
	t.Setenv("LOGGER_DISABLE_CALLER", "true")
	t.Setenv("DATABASE_MIN_CONNS", "2")

	cfg := LoadEnv()
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 500, cfg.Import.MaxRows)
	assert.Equal(t, 200, cfg.Report.MaxPageSize, "unparsable values fall back")
	assert.True(t, cfg.Logger.DisableCaller)
	assert.Equal(t, 2, cfg.Postgres.MinConns)
}
