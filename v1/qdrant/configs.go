package qdrant

import (
	"errors"
	"os"
	"strconv"
	"time"
)

const (
	DefaultEndpoint = "localhost"
	DefaultPort     = 6334
)

// Config holds connection and behavior settings for the Qdrant client.
//
// It is intentionally minimal and easy to override from environment
// variables, YAML, or programmatically via helper methods.
//
// Example (programmatic):
//
//	cfg := qdrant.DefaultConfig()
//	cfg.Endpoint = "qdrant.internal"
//	cfg.ApiKey = os.Getenv("QDRANT_API_KEY")
//
// Example (builder style):
//
//	cfg := qdrant.FromEndpoint("qdrant.internal").
//	    WithApiKey(os.Getenv("QDRANT_API_KEY")).
//	    WithTimeout(10 * time.Second)
type Config struct {
	// Hostname of the Qdrant server, e.g. "localhost".
	Endpoint string `yaml:"endpoint" envconfig:"QDRANT_ENDPOINT"`

	// gRPC port of the Qdrant server. Defaults to 6334.
	Port int `yaml:"port" envconfig:"QDRANT_PORT"`

	// Optional authentication token for secured deployments.
	ApiKey string `yaml:"api_key" envconfig:"QDRANT_API_KEY"`

	UseTLS bool `yaml:"use_tls" envconfig:"QDRANT_USE_TLS"`

	// Collection used by callers that do not name one, e.g. the CLI.
	DefaultCollection string `yaml:"default_collection" envconfig:"QDRANT_DEFAULT_COLLECTION"`

	// Maximum duration of a single request.
	Timeout time.Duration `yaml:"timeout" envconfig:"QDRANT_TIMEOUT"`

	// Points per upsert request.
	BatchSize int `yaml:"batch_size" envconfig:"QDRANT_BATCH_SIZE"`

	// Upper bound of concurrently executed queries of one Search call.
	MaxConcurrentSearches int `yaml:"max_concurrent_searches" envconfig:"QDRANT_MAX_CONCURRENT_SEARCHES"`

	// Whether to perform version compatibility checks between client and server.
	CheckCompatibility bool `yaml:"check_compatibility" envconfig:"QDRANT_CHECK_COMPATIBILITY"`
}

// DefaultConfig provides sensible defaults for most use cases.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:              DefaultEndpoint,
		Port:                  DefaultPort,
		Timeout:               5 * time.Second,
		BatchSize:             defaultBatchSize,
		MaxConcurrentSearches: maxConcurrentSearches,
		CheckCompatibility:    true,
	}
}

// NewConfig reads the configuration from QDRANT_* environment variables on
// top of DefaultConfig.
func NewConfig() *Config {
	cfg := DefaultConfig()
	if v := os.Getenv("QDRANT_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v, err := strconv.Atoi(os.Getenv("QDRANT_PORT")); err == nil && v > 0 {
		cfg.Port = v
	}
	cfg.ApiKey = os.Getenv("QDRANT_API_KEY")
	cfg.UseTLS = os.Getenv("QDRANT_USE_TLS") == "true"
	cfg.DefaultCollection = os.Getenv("QDRANT_DEFAULT_COLLECTION")
	if v, err := time.ParseDuration(os.Getenv("QDRANT_TIMEOUT")); err == nil && v > 0 {
		cfg.Timeout = v
	}
	if v, err := strconv.Atoi(os.Getenv("QDRANT_BATCH_SIZE")); err == nil && v > 0 {
		cfg.BatchSize = v
	}
	if v, err := strconv.Atoi(os.Getenv("QDRANT_MAX_CONCURRENT_SEARCHES")); err == nil && v > 0 {
		cfg.MaxConcurrentSearches = v
	}
	if v := os.Getenv("QDRANT_CHECK_COMPATIBILITY"); v != "" {
		cfg.CheckCompatibility = v == "true"
	}
	return cfg
}

// FromEndpoint returns a default config pre-filled with a specific endpoint.
func FromEndpoint(host string) *Config {
	cfg := DefaultConfig()
	cfg.Endpoint = host
	return cfg
}

// Validate checks the settings NewQdrantClient relies on.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("[Qdrant] config is nil")
	}
	if c.Endpoint == "" {
		return errors.New("[Qdrant] endpoint is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.New("[Qdrant] port out of range")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxConcurrentSearches <= 0 {
		c.MaxConcurrentSearches = maxConcurrentSearches
	}
}

// Builder-style helpers (optional, ergonomic)
func (c *Config) WithApiKey(key string) *Config {
	c.ApiKey = key
	return c
}

func (c *Config) WithTimeout(d time.Duration) *Config {
	c.Timeout = d
	return c
}

func (c *Config) WithPort(port int) *Config {
	c.Port = port
	return c
}

func (c *Config) WithTLS(enabled bool) *Config {
	c.UseTLS = enabled
	return c
}

func (c *Config) WithCompatibilityCheck(enabled bool) *Config {
	c.CheckCompatibility = enabled
	return c
}
