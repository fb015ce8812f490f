// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all runtime settings. It is loaded once at startup
// and injected through fx so every consumer sees the same snapshot.
type Config struct {
	Environment string
	HTTPAddr    string
	DatabaseURL string

	// ImportBatchSize bounds each ordered write batch during bulk
	// ingestion and cleanup passes.
	ImportBatchSize int

	// ImportMaxRowErrors bounds the per-row error list accumulated by
	// a bulk import before further errors are only counted.
	ImportMaxRowErrors int

	// ResolverCacheTTL controls the customer identifier cache.
	ResolverCacheTTL time.Duration

	// ImportRateLimit and ImportRateWindow throttle how many bulk
	// imports a single client may start per window.
	ImportRateLimit  int
	ImportRateWindow time.Duration
}

// IsProduction reports whether the service runs with production guards.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from the environment, consulting a local
// .env file when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:        getenv("APP_ENV", "development"),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:        getenv("DATABASE_URL", ""),
		ImportBatchSize:    getint("IMPORT_BATCH_SIZE", 450),
		ImportMaxRowErrors: getint("IMPORT_MAX_ROW_ERRORS", 50),
		ResolverCacheTTL:   getduration("RESOLVER_CACHE_TTL", 5*time.Minute),
		ImportRateLimit:    getint("IMPORT_RATE_LIMIT", 5),
		ImportRateWindow:   getduration("IMPORT_RATE_WINDOW", time.Minute),
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
