package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Catalog sources.
const (
	CatalogSourceFile     = "file"
	CatalogSourcePostgres = "postgres"
)

// Cart session stores.
const (
	CartStoreMemory = "memory"
	CartStoreRedis  = "redis"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv              string
	Port                string
	DatabaseURL         string
	RedisURL            string
	CatalogFile         string
	CatalogSource       string
	CatalogCacheTTL     time.Duration
	CatalogDefaultLimit int
	CatalogMaxLimit     int
	CartSessionTTL      time.Duration
	CartStore           string
	CartLockTTL         time.Duration
	CORSAllowedOrigins  []string
	RateLimitMax        int
	RateLimitWindow     time.Duration
	CurrencyCode        string
	IdempotencyTTL      time.Duration
	RunMigrations       bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:              valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:         strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:            strings.TrimSpace(k.String("REDIS_URL")),
		CatalogFile:         valueOrDefault(k.String("CATALOG_FILE"), "catalog.yaml"),
		CatalogSource:       strings.ToLower(valueOrDefault(k.String("CATALOG_SOURCE"), CatalogSourceFile)),
		CatalogCacheTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CatalogDefaultLimit: parseInt(k.String("CATALOG_DEFAULT_LIMIT"), 20),
		CatalogMaxLimit:     parseInt(k.String("CATALOG_MAX_LIMIT"), 100),
		CartSessionTTL:      parseDuration(k.String("CART_SESSION_TTL"), "24h"),
		CartStore:           strings.ToLower(valueOrDefault(k.String("CART_STORE"), CartStoreMemory)),
		CartLockTTL:         parseDuration(k.String("CART_LOCK_TTL"), "5s"),
		CORSAllowedOrigins:  splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RateLimitMax:        parseInt(k.String("RATE_LIMIT_MAX"), 120),
		RateLimitWindow:     parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		CurrencyCode:        strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "KRW")),
		IdempotencyTTL:      parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RunMigrations:       parseBool(k.String("RUN_MIGRATIONS")),
	}

	switch cfg.CatalogSource {
	case CatalogSourceFile:
	case CatalogSourcePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when CATALOG_SOURCE=postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported CATALOG_SOURCE %q", cfg.CatalogSource)
	}

	switch cfg.CartStore {
	case CartStoreMemory:
	case CartStoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required when CART_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("unsupported CART_STORE %q", cfg.CartStore)
	}

	if cfg.RunMigrations && cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required when RUN_MIGRATIONS is set")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
