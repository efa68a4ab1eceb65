package redis

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config defines the configuration of the Redis client and the chat history
// store built on it.
type Config struct {
	// Host is the Redis server hostname or IP address
	// Default: "localhost"
	Host string `yaml:"host" envconfig:"REDIS_HOST"`

	// Port is the Redis server port
	// Default: 6379
	Port int `yaml:"port" envconfig:"REDIS_PORT"`

	// Username is the Redis username for ACL authentication (Redis 6.0+)
	Username string `yaml:"username" envconfig:"REDIS_USERNAME"`

	// Password is the Redis password for authentication
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`

	// DB is the Redis database number to use
	DB int `yaml:"db" envconfig:"REDIS_DB"`

	// PoolSize is the maximum number of socket connections
	// Default: 10 per CPU
	PoolSize int `yaml:"pool_size" envconfig:"REDIS_POOL_SIZE"`

	// MaxRetries is the maximum number of retries before giving up.
	// Set to -1 to disable retries.
	// Default: 3
	MaxRetries int `yaml:"max_retries" envconfig:"REDIS_MAX_RETRIES"`

	// DialTimeout is the timeout for establishing new connections
	// Default: 5 seconds
	DialTimeout time.Duration `yaml:"dial_timeout" envconfig:"REDIS_DIAL_TIMEOUT"`

	// ReadTimeout is the timeout for socket reads
	// Default: 3 seconds
	ReadTimeout time.Duration `yaml:"read_timeout" envconfig:"REDIS_READ_TIMEOUT"`

	// WriteTimeout is the timeout for socket writes
	// Default: ReadTimeout
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"REDIS_WRITE_TIMEOUT"`

	// TLS contains TLS/SSL configuration
	TLS TLSConfig `yaml:"tls"`

	// KeyPrefix is prepended to every key the chat history store writes.
	// Default: "connectors:"
	KeyPrefix string `yaml:"key_prefix" envconfig:"REDIS_KEY_PREFIX"`

	// HistoryTTL expires a conversation after the given idle time. Every
	// append refreshes it. Zero keeps conversations forever.
	HistoryTTL time.Duration `yaml:"history_ttl" envconfig:"REDIS_HISTORY_TTL"`
}

// TLSConfig contains TLS/SSL configuration parameters.
type TLSConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"REDIS_TLS_ENABLED"`

	// CACertPath is the file path to the CA certificate for verifying the server
	CACertPath string `yaml:"ca_cert_path" envconfig:"REDIS_TLS_CA_CERT"`

	ClientCertPath string `yaml:"client_cert_path" envconfig:"REDIS_TLS_CLIENT_CERT"`
	ClientKeyPath  string `yaml:"client_key_path" envconfig:"REDIS_TLS_CLIENT_KEY"`

	// InsecureSkipVerify controls whether to skip verification of the server's certificate
	// WARNING: Setting this to true is insecure and should only be used in testing
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" envconfig:"REDIS_TLS_INSECURE_SKIP_VERIFY"`

	// ServerName is used to verify the hostname on the returned certificates
	// If empty, the Host from the main config is used
	ServerName string `yaml:"server_name" envconfig:"REDIS_TLS_SERVER_NAME"`
}

// Default values for configuration
const (
	DefaultHost            = "localhost"
	DefaultPort            = 6379
	DefaultMaxRetries      = 3
	DefaultMinRetryBackoff = 8 * time.Millisecond
	DefaultMaxRetryBackoff = 512 * time.Millisecond
	DefaultDialTimeout     = 5 * time.Second
	DefaultReadTimeout     = 3 * time.Second
	DefaultIdleTimeout     = 5 * time.Minute
	DefaultKeyPrefix       = "connectors:"
)

// NewConfig reads the REDIS_* environment variables and fills in defaults.
func NewConfig() Config {
	cfg := Config{
		Host:      os.Getenv("REDIS_HOST"),
		Username:  os.Getenv("REDIS_USERNAME"),
		Password:  os.Getenv("REDIS_PASSWORD"),
		KeyPrefix: os.Getenv("REDIS_KEY_PREFIX"),
	}
	if v, err := strconv.Atoi(os.Getenv("REDIS_PORT")); err == nil {
		cfg.Port = v
	}
	if v, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		cfg.DB = v
	}
	if v, err := strconv.Atoi(os.Getenv("REDIS_POOL_SIZE")); err == nil {
		cfg.PoolSize = v
	}
	if v, err := time.ParseDuration(os.Getenv("REDIS_HISTORY_TTL")); err == nil {
		cfg.HistoryTTL = v
	}
	if v, err := strconv.ParseBool(os.Getenv("REDIS_TLS_ENABLED")); err == nil {
		cfg.TLS.Enabled = v
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
}

// Validate rejects settings the client cannot work with.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.DB < 0 {
		return fmt.Errorf("%w: db must not be negative", ErrInvalidConfig)
	}
	if c.HistoryTTL < 0 {
		return fmt.Errorf("%w: history ttl must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
