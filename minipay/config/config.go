package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultHTTPAddress = ":8080"
	defaultLogLevel    = "info"
	defaultStorage     = StorageMemory
	defaultMaxRetries  = 3
)

// Storage selects the persistence backend.
type Storage string

const (
	// StorageMemory keeps all state in process memory. Default.
	StorageMemory Storage = "memory"
	// StoragePostgres persists state in PostgreSQL.
	StoragePostgres Storage = "postgres"
)

// Config is the resolved runtime configuration.
type Config struct {
	// HTTPAddress is the listen address of the HTTP server.
	HTTPAddress string
	// LogLevel is one of error, warn, info, debug.
	LogLevel string
	// Storage selects the persistence backend.
	Storage Storage
	// PrimaryDBURL is the read-write PostgreSQL connection string. Required
	// when Storage is postgres.
	PrimaryDBURL string
	// ReplicaDBURL is the read-only PostgreSQL connection string. Falls back
	// to PrimaryDBURL when empty.
	ReplicaDBURL string
	// MaxRetries bounds optimistic-conflict retries per operation.
	MaxRetries int
	// TopUpUnit is the auto top-up granularity in minor units.
	TopUpUnit decimal.Decimal
	// DailyLimit is the per-day debit ceiling for MAIN accounts.
	DailyLimit decimal.Decimal
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddress:  getEnv("HTTP_ADDRESS", defaultHTTPAddress),
		LogLevel:     getEnv("LOG_LEVEL", defaultLogLevel),
		Storage:      Storage(getEnv("STORAGE", string(defaultStorage))),
		PrimaryDBURL: getEnv("DB_PRIMARY_URL", ""),
		ReplicaDBURL: getEnv("DB_REPLICA_URL", ""),
	}

	retries, err := getEnvInt("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		return Config{}, err
	}

	cfg.MaxRetries = retries

	topUpUnit, err := getEnvDecimal("TOP_UP_UNIT", decimal.NewFromInt(10_000))
	if err != nil {
		return Config{}, err
	}

	cfg.TopUpUnit = topUpUnit

	dailyLimit, err := getEnvDecimal("DAILY_LIMIT", ledger.DefaultDailyLimit)
	if err != nil {
		return Config{}, err
	}

	cfg.DailyLimit = dailyLimit

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for internally inconsistent values.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.PrimaryDBURL == "" {
			return fmt.Errorf("DB_PRIMARY_URL is required when STORAGE is %q", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE %q", string(c.Storage))
	}

	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}

	if !c.TopUpUnit.IsPositive() {
		return fmt.Errorf("TOP_UP_UNIT must be positive, got %s", c.TopUpUnit)
	}

	if !c.DailyLimit.IsPositive() {
		return fmt.Errorf("DAILY_LIMIT must be positive, got %s", c.DailyLimit)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}

	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return parsed, nil
}

func getEnvDecimal(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s: %w", key, err)
	}

	return parsed, nil
}
