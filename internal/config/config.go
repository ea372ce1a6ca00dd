// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Pipeline PipelineConfig
	Ingest   IngestConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, unlimited)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the sink connection settings.
type DatabaseConfig struct {
	// Driver selects the sink: postgres, sqlserver, sqlite or none (default: none)
	Driver string `env:"DB_DRIVER" default:"none"`

	// URL is the connection string, required unless Driver is none.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Table is the target table (default: sales_cleaned)
	Table string `env:"DB_TABLE" default:"sales_cleaned"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// PipelineConfig holds resolution and coercion settings.
type PipelineConfig struct {
	// CatalogPath is a YAML or JSON catalog file; empty uses the built-in catalog
	CatalogPath string `env:"CATALOG_PATH"`

	// UnresolvedPolicy is abort or proceed (default: abort)
	UnresolvedPolicy string `env:"UNRESOLVED_POLICY" default:"abort"`

	// DateFormats replaces the accepted date layouts, semicolon-separated
	DateFormats []string `env:"DATE_FORMATS" sep:";"`

	// BatchSize is the number of records per sink write (default: 500)
	BatchSize int `env:"BATCH_SIZE" default:"500"`

	// InputEncoding is the CSV byte encoding (default: utf-8)
	InputEncoding string `env:"INPUT_ENCODING" default:"utf-8"`

	// MaxFileSize is the maximum accepted CSV size in bytes (default: 100MB)
	MaxFileSize int64 `env:"MAX_FILE_SIZE" default:"104857600"`

	// FailedRowsDir receives "<name> - failed.csv" files; empty disables them
	FailedRowsDir string `env:"FAILED_ROWS_DIR"`

	// LowConfidence flags assignments scoring below it for review (default: 0.8)
	LowConfidence float64 `env:"LOW_CONFIDENCE" default:"0.8"`

	// MinScore drops match candidates scoring below it (default: 0, disabled)
	MinScore float64 `env:"MIN_SCORE" default:"0"`
}

// IngestConfig holds HTTP ingest settings.
type IngestConfig struct {
	// MaxConcurrent is the maximum number of parallel ingests (default: 4)
	MaxConcurrent int `env:"INGEST_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an ingest slot (default: 30s)
	MaxWaitTime time.Duration `env:"INGEST_MAX_WAIT" default:"30s"`

	// Timeout is the maximum duration for a single ingest (default: 10m)
	Timeout time.Duration `env:"INGEST_TIMEOUT" default:"10m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}
