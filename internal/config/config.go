// Package config loads service settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
	BackendMemory     = "memory"
)

// Config holds all service settings.
type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`

	Backend                string        `yaml:"backend"`
	ExplorerDatabaseURL    string        `yaml:"explorer_database_url"`
	BalancesDatabaseURL    string        `yaml:"balances_database_url"`
	DatabaseMaxConnections int32         `yaml:"database_max_connections"`
	ClickHouseDSN          string        `yaml:"clickhouse_dsn"`
	DBMaxRetries           int           `yaml:"db_max_retries"`
	DBRetryDelay           time.Duration `yaml:"db_retry_delay"`

	RPCURL        string        `yaml:"rpc_url"`
	RPCTimeout    time.Duration `yaml:"rpc_timeout"`
	RPCMaxRetries int           `yaml:"rpc_max_retries"`
	RPCRateLimit  float64       `yaml:"rpc_rate_limit"` // requests per second, 0 = unlimited

	MetadataCacheSize   int `yaml:"metadata_cache_size"`
	HistoryDefaultLimit int `yaml:"history_default_limit"`
	HistoryMaxLimit     int `yaml:"history_max_limit"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTPAddr:               ":8080",
		ShutdownTimeout:        30 * time.Second,
		LogLevel:               "info",
		Backend:                BackendPostgres,
		DatabaseMaxConnections: 97,
		DBMaxRetries:           3,
		DBRetryDelay:           100 * time.Millisecond,
		RPCURL:                 "https://archival-rpc.mainnet.near.org",
		RPCTimeout:             10 * time.Second,
		RPCMaxRetries:          3,
		MetadataCacheSize:      1024,
		HistoryDefaultLimit:    20,
		HistoryMaxLimit:        100,
	}
}

// Load builds the configuration. path may be empty. A .env file in the
// working directory is read first and never overrides real environment
// variables.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("HTTP_ADDR", &c.HTTPAddr)
	duration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	str("LOG_LEVEL", &c.LogLevel)
	str("BACKEND", &c.Backend)
	str("EXPLORER_DATABASE_URL", &c.ExplorerDatabaseURL)
	str("BALANCES_DATABASE_URL", &c.BalancesDatabaseURL)
	str("CLICKHOUSE_DSN", &c.ClickHouseDSN)
	integer("DB_MAX_RETRIES", &c.DBMaxRetries)
	duration("DB_RETRY_DELAY", &c.DBRetryDelay)
	str("RPC_URL", &c.RPCURL)
	duration("RPC_TIMEOUT", &c.RPCTimeout)
	integer("RPC_MAX_RETRIES", &c.RPCMaxRetries)
	integer("METADATA_CACHE_SIZE", &c.MetadataCacheSize)
	integer("HISTORY_DEFAULT_LIMIT", &c.HistoryDefaultLimit)
	integer("HISTORY_MAX_LIMIT", &c.HistoryMaxLimit)

	if v, ok := lookup("DATABASE_MAX_CONNECTIONS"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("DATABASE_MAX_CONNECTIONS: %w", err))
		} else {
			c.DatabaseMaxConnections = int32(n)
		}
	}
	if v, ok := lookup("RPC_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RPC_RATE_LIMIT: %w", err))
		} else {
			c.RPCRateLimit = f
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}
	return nil
}

// Validate checks that the settings are usable together.
func (c Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendPostgres:
		if c.ExplorerDatabaseURL == "" {
			errs = append(errs, errors.New("EXPLORER_DATABASE_URL is required for the postgres backend"))
		}
		if c.BalancesDatabaseURL == "" {
			errs = append(errs, errors.New("BALANCES_DATABASE_URL is required for the postgres backend"))
		}
		if c.DatabaseMaxConnections <= 0 {
			errs = append(errs, errors.New("DATABASE_MAX_CONNECTIONS must be positive"))
		}
	case BackendClickHouse:
		if c.ClickHouseDSN == "" {
			errs = append(errs, errors.New("CLICKHOUSE_DSN is required for the clickhouse backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	if c.RPCURL == "" {
		errs = append(errs, errors.New("RPC_URL is required"))
	}
	if c.RPCMaxRetries < 0 || c.DBMaxRetries < 0 {
		errs = append(errs, errors.New("retry counts must not be negative"))
	}
	if c.HistoryDefaultLimit <= 0 {
		errs = append(errs, errors.New("HISTORY_DEFAULT_LIMIT must be positive"))
	}
	if c.HistoryMaxLimit <= 0 {
		errs = append(errs, errors.New("HISTORY_MAX_LIMIT must be positive"))
	}
	if c.HistoryDefaultLimit > c.HistoryMaxLimit {
		errs = append(errs, errors.New("HISTORY_DEFAULT_LIMIT must not exceed HISTORY_MAX_LIMIT"))
	}

	return errors.Join(errs...)
}
