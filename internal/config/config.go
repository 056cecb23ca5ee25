package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Import   ImportConfig
	Report   ReportConfig
}

type ServerConfig struct {
	AppEnv         string
	Addr           string
	AllowedOrigins []string
	MaxBodyBytes   int64
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// RedisConfig configures the statistics cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

type JWTConfig struct {
	Secret string
}

type ImportConfig struct {
	MaxRows            int
	ErrorLimit         int
	AggregateWarehouse string
}

type ReportConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// IsDevelopment reports whether the process runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "dev" || c.Server.AppEnv == "development"
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:         getEnv("APP_ENV", "dev"),
			Addr:           getEnv("SERVER_ADDR", ":8080"),
			AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			MaxBodyBytes:   int64(getEnvInt("SERVER_MAX_BODY_BYTES", 16<<20)),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt("DATABASE_MAX_CONNS", 10),
			MinConns: getEnvInt("DATABASE_MIN_CONNS", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "stock:stats:"),
			TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Import: ImportConfig{
			MaxRows:            getEnvInt("IMPORT_MAX_ROWS", 10000),
			ErrorLimit:         getEnvInt("IMPORT_ERROR_LIMIT", 20),
			AggregateWarehouse: getEnv("IMPORT_AGGREGATE_WAREHOUSE", "全国"),
		},
		Report: ReportConfig{
			DefaultPageSize: getEnvInt("REPORT_DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:     getEnvInt("REPORT_MAX_PAGE_SIZE", 200),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
