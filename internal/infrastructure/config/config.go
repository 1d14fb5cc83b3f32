// Package config provides configuration structs and utilities for the ttracker application.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Config represents the root configuration for the ttracker application.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Billing BillingConfig `yaml:"billing"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// StoreConfig holds configuration for the local SQLite store.
type StoreConfig struct {
	Path string `yaml:"path"` // Database file path (default: ~/.ttracker/ttracker.db)
}

// BillingConfig holds configuration for the remote billing service.
type BillingConfig struct {
	BaseURL    string        `yaml:"base_url,omitempty"` // Optional custom endpoint; derived from username when empty
	Username   string        `yaml:"username"`           // Billing account subdomain
	APIKey     string        `yaml:"api_key"`            // API token
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds configuration for tracing sync runs.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`       // Whether tracing is enabled
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"` // OTLP collector endpoint
	SampleRate   float64 `yaml:"sample_rate"`   // Sampling rate (0.0 to 1.0)
	ServiceName  string  `yaml:"service_name"`  // Service name for traces
}

// Default configuration values.
const (
	DefaultTimeout             = 30 * time.Second
	DefaultMaxRetries          = 3
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
	DefaultTracingEnabled      = false
	DefaultTracingExporterType = "none"
	DefaultTracingSampleRate   = 1.0
	DefaultTracingServiceName  = "ttracker"

	// StorePathEnv overrides the store location, matching the behavior of
	// earlier versions of the tool.
	StorePathEnv = "TTRACKER_DB"
)

// NewDefaultConfig returns a Config populated with defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Billing: BillingConfig{
			Timeout:    DefaultTimeout,
			MaxRetries: DefaultMaxRetries,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Tracing: TracingConfig{
			Enabled:      DefaultTracingEnabled,
			ExporterType: DefaultTracingExporterType,
			SampleRate:   DefaultTracingSampleRate,
			ServiceName:  DefaultTracingServiceName,
		},
	}
}

// defaultStorePath returns the store location, honoring the TTRACKER_DB
// environment variable.
func defaultStorePath() string {
	if p := os.Getenv(StorePathEnv); p != "" {
		return p
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "ttracker.db"
	}
	return filepath.Join(homeDir, ".ttracker", "ttracker.db")
}

// HasCredentials reports whether the billing credentials are configured.
func (c *BillingConfig) HasCredentials() bool {
	return c.Username != "" && c.APIKey != ""
}

// Endpoint returns the billing API base URL, deriving the per-account URL
// from the username when no explicit base URL is configured.
func (c *BillingConfig) Endpoint() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("https://%s.freshbooks.com/api", c.Username)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Billing.BaseURL != "" {
		if _, err := url.Parse(c.Billing.BaseURL); err != nil {
			return fmt.Errorf("invalid billing base URL: %w", err)
		}
	}
	if c.Billing.Timeout <= 0 {
		return fmt.Errorf("billing timeout must be positive")
	}
	if c.Billing.MaxRetries < 0 {
		return fmt.Errorf("billing max retries must not be negative")
	}

	if c.Tracing.Enabled {
		switch c.Tracing.ExporterType {
		case "none", "stdout", "otlp":
		default:
			return fmt.Errorf("invalid tracing exporter: %s", c.Tracing.ExporterType)
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing sample rate must be between 0 and 1")
		}
	}

	return nil
}
