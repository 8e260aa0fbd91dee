// Package config provides the unified configuration for sheetdb.
//
// The configuration is organized into logical sections:
//   - Store: remote endpoint and write options for the spreadsheet API
//   - Reliability: retry attempts, backoff and rate limiting
//   - Cache: lifetime of cached reads
//   - Journal: where the per-store sync journal is persisted
//   - Performance: fan-out limits for multi-store reads
//   - Observability: logging and tracing
//   - Security: bearer credential used by the CLI
//
// Example usage:
//
//	cfg := config.NewBaseConfig("inventory")
//	cfg.Cache.TTL = time.Minute
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// Journal backends understood by JournalConfig.Backend.
const (
	JournalFile   = "file"
	JournalRedis  = "redis"
	JournalSQLite = "sqlite"
	JournalMemory = "memory"
)

// BaseConfig is the single configuration structure used by the library and the CLI.
type BaseConfig struct {
	// Name identifies the application using the data layer
	Name string `yaml:"name" json:"name" env:"SHEETDB_NAME"`

	Store         StoreConfig         `yaml:"store" json:"store"`
	Reliability   ReliabilityConfig   `yaml:"reliability" json:"reliability"`
	Cache         CacheConfig         `yaml:"cache" json:"cache"`
	Journal       JournalConfig       `yaml:"journal" json:"journal"`
	Performance   PerformanceConfig   `yaml:"performance" json:"performance"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
}

// StoreConfig controls how the remote spreadsheet API is reached.
type StoreConfig struct {
	// Endpoint overrides the API base URL (tests, proxies)
	Endpoint string `yaml:"endpoint" json:"endpoint" env:"SHEETDB_ENDPOINT"`
	// ValueInputOption is passed on append/update (RAW or USER_ENTERED)
	ValueInputOption string `yaml:"value_input_option" json:"value_input_option" env:"SHEETDB_VALUE_INPUT_OPTION"`
	// UserAgent is sent with every request
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	// RequestTimeout bounds a single HTTP attempt
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" env:"SHEETDB_REQUEST_TIMEOUT"`
}

// ReliabilityConfig contains retry and throttling settings.
type ReliabilityConfig struct {
	// RetryAttempts is the total number of attempts, the first one included
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts" env:"SHEETDB_RETRY_ATTEMPTS"`
	// RetryDelay is the base delay before the first retry
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay" env:"SHEETDB_RETRY_DELAY"`
	// RetryMultiplier grows the delay exponentially
	RetryMultiplier float64 `yaml:"retry_multiplier" json:"retry_multiplier"`
	// RetryJitter is the upper bound of the random delay added to each backoff
	RetryJitter time.Duration `yaml:"retry_jitter" json:"retry_jitter"`
	// RateLimitPerSec limits outgoing requests per second (0 = unlimited)
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec" env:"SHEETDB_RATE_LIMIT"`
	// RateBurst is the token bucket size when rate limiting is enabled
	RateBurst int `yaml:"rate_burst" json:"rate_burst"`
}

// CacheConfig controls the read cache.
type CacheConfig struct {
	// TTL is measured from the moment a value is stored
	TTL time.Duration `yaml:"ttl" json:"ttl" env:"SHEETDB_CACHE_TTL"`
}

// JournalConfig selects the durable sync journal backend.
type JournalConfig struct {
	// Backend is one of file, redis, sqlite, memory
	Backend string `yaml:"backend" json:"backend" env:"SHEETDB_JOURNAL_BACKEND"`
	// Path is the journal file (file backend) or database file (sqlite backend)
	Path string `yaml:"path" json:"path" env:"SHEETDB_JOURNAL_PATH"`
	// RedisAddr is host:port of the redis server
	RedisAddr string `yaml:"redis_addr" json:"redis_addr" env:"SHEETDB_REDIS_ADDR"`
	// RedisPassword authenticates against redis
	RedisPassword string `yaml:"redis_password" json:"redis_password" env:"SHEETDB_REDIS_PASSWORD"`
	// RedisDB selects the redis database
	RedisDB int `yaml:"redis_db" json:"redis_db"`
	// RedisKey is the hash holding one field per store
	RedisKey string `yaml:"redis_key" json:"redis_key"`
}

// PerformanceConfig limits concurrent work.
type PerformanceConfig struct {
	// MaxConcurrency bounds the number of stores fetched at once
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" env:"SHEETDB_MAX_CONCURRENCY"`
}

// ObservabilityConfig contains logging and tracing settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level" env:"SHEETDB_LOG_LEVEL"`
	// LogEncoding is json or console
	LogEncoding string `yaml:"log_encoding" json:"log_encoding" env:"SHEETDB_LOG_ENCODING"`
	// EnableTracing installs a stdout span exporter
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing" env:"SHEETDB_TRACING"`
	// ServiceName labels exported spans
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// SecurityConfig carries the bearer credential. Acquisition and refresh
// happen outside this module.
type SecurityConfig struct {
	// AccessToken is a currently valid OAuth2 bearer token (use env vars in production)
	AccessToken string `yaml:"access_token" json:"-" env:"SHEETDB_ACCESS_TOKEN"`
}

// NewBaseConfig creates a new BaseConfig with sensible defaults.
//
// Example:
//
//	cfg := config.NewBaseConfig("crm")
//	cfg.Reliability.RetryAttempts = 5  // Override default
func NewBaseConfig(name string) *BaseConfig {
	return &BaseConfig{
		Name: name,
		Store: StoreConfig{
			ValueInputOption: "USER_ENTERED",
			UserAgent:        "sheetdb/1.0",
			RequestTimeout:   30 * time.Second,
		},
		Reliability: ReliabilityConfig{
			RetryAttempts:   3,
			RetryDelay:      time.Second,
			RetryMultiplier: 2.0,
			RetryJitter:     time.Second,
			RateLimitPerSec: 0,
			RateBurst:       10,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Journal: JournalConfig{
			Backend:  JournalFile,
			Path:     "sheetdb-journal.json",
			RedisKey: "sheetdb:sync_journal",
		},
		Performance: PerformanceConfig{
			MaxConcurrency: 4,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogEncoding: "json",
			ServiceName: "sheetdb",
		},
	}
}

// Validate checks required fields and value ranges. Call it after loading.
func (bc *BaseConfig) Validate() error {
	if bc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if bc.Reliability.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1")
	}
	if bc.Reliability.RetryDelay < 0 || bc.Reliability.RetryJitter < 0 {
		return fmt.Errorf("retry_delay and retry_jitter cannot be negative")
	}
	if bc.Reliability.RetryMultiplier < 1 {
		return fmt.Errorf("retry_multiplier must be at least 1")
	}
	if bc.Reliability.RateLimitPerSec < 0 {
		return fmt.Errorf("rate_limit_per_sec cannot be negative")
	}
	if bc.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if bc.Performance.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive")
	}
	switch bc.Store.ValueInputOption {
	case "RAW", "USER_ENTERED":
	default:
		return fmt.Errorf("value_input_option must be RAW or USER_ENTERED, got %q", bc.Store.ValueInputOption)
	}
	switch bc.Journal.Backend {
	case JournalFile, JournalSQLite:
		if bc.Journal.Path == "" {
			return fmt.Errorf("journal path is required for the %s backend", bc.Journal.Backend)
		}
	case JournalRedis:
		if bc.Journal.RedisAddr == "" {
			return fmt.Errorf("journal redis_addr is required for the redis backend")
		}
	case JournalMemory:
	default:
		return fmt.Errorf("unknown journal backend %q", bc.Journal.Backend)
	}
	return nil
}

// IsRateLimited returns true if rate limiting is enabled
func (r *ReliabilityConfig) IsRateLimited() bool {
	return r.RateLimitPerSec > 0
}
