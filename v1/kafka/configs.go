package kafka

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTopic is the topic invocation events are written to.
	DefaultTopic = "kernel.invocations"

	// DefaultRequiredAcks waits for all in-sync replicas.
	DefaultRequiredAcks = "all"

	DefaultBatchSize    = 100
	DefaultBatchTimeout = 1 * time.Second
	DefaultMaxAttempts  = 3
	DefaultWriteTimeout = 10 * time.Second
	DefaultDialTimeout  = 5 * time.Second
)

// Config defines the connection and producer settings of the event sink.
type Config struct {
	// Brokers is the list of bootstrap brokers, e.g. ["localhost:9092"].
	Brokers []string `yaml:"brokers" envconfig:"KAFKA_BROKERS"`

	// Topic receives the events.
	// Default: "kernel.invocations"
	Topic string `yaml:"topic" envconfig:"KAFKA_TOPIC"`

	ClientID string `yaml:"client_id" envconfig:"KAFKA_CLIENT_ID"`

	// RequiredAcks is one of "all", "one" or "none".
	// Default: "all"
	RequiredAcks string `yaml:"required_acks" envconfig:"KAFKA_REQUIRED_ACKS"`

	// Async makes Publish return before the broker acknowledged the batch.
	// Delivery failures are then only logged.
	Async bool `yaml:"async" envconfig:"KAFKA_ASYNC"`

	BatchSize    int           `yaml:"batch_size" envconfig:"KAFKA_BATCH_SIZE"`
	BatchTimeout time.Duration `yaml:"batch_timeout" envconfig:"KAFKA_BATCH_TIMEOUT"`
	MaxAttempts  int           `yaml:"max_attempts" envconfig:"KAFKA_MAX_ATTEMPTS"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"KAFKA_WRITE_TIMEOUT"`
	DialTimeout  time.Duration `yaml:"dial_timeout" envconfig:"KAFKA_DIAL_TIMEOUT"`

	// CompressionCodec is one of "gzip", "snappy", "lz4", "zstd" or empty
	// for no compression.
	CompressionCodec string `yaml:"compression_codec" envconfig:"KAFKA_COMPRESSION_CODEC"`

	// AllowAutoTopicCreation lets the broker create Topic on first write.
	AllowAutoTopicCreation bool `yaml:"allow_auto_topic_creation" envconfig:"KAFKA_ALLOW_AUTO_TOPIC_CREATION"`

	TLS  TLSConfig  `yaml:"tls"`
	SASL SASLConfig `yaml:"sasl"`
}

// TLSConfig contains TLS/SSL configuration parameters.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled" envconfig:"KAFKA_TLS_ENABLED"`
	CACertPath         string `yaml:"ca_cert_path" envconfig:"KAFKA_TLS_CA_CERT"`
	ClientCertPath     string `yaml:"client_cert_path" envconfig:"KAFKA_TLS_CLIENT_CERT"`
	ClientKeyPath      string `yaml:"client_key_path" envconfig:"KAFKA_TLS_CLIENT_KEY"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" envconfig:"KAFKA_TLS_INSECURE_SKIP_VERIFY"`
}

// SASLConfig contains SASL authentication parameters.
type SASLConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"KAFKA_SASL_ENABLED"`

	// Mechanism is one of "PLAIN", "SCRAM-SHA-256" or "SCRAM-SHA-512".
	Mechanism string `yaml:"mechanism" envconfig:"KAFKA_SASL_MECHANISM"`
	Username  string `yaml:"username" envconfig:"KAFKA_SASL_USERNAME"`
	Password  string `yaml:"password" envconfig:"KAFKA_SASL_PASSWORD"`
}

// NewConfig reads the configuration from KAFKA_* environment variables.
// KAFKA_BROKERS is a comma separated list.
func NewConfig() Config {
	cfg := Config{
		Topic:            os.Getenv("KAFKA_TOPIC"),
		ClientID:         os.Getenv("KAFKA_CLIENT_ID"),
		RequiredAcks:     os.Getenv("KAFKA_REQUIRED_ACKS"),
		CompressionCodec: os.Getenv("KAFKA_COMPRESSION_CODEC"),
		TLS: TLSConfig{
			CACertPath:     os.Getenv("KAFKA_TLS_CA_CERT"),
			ClientCertPath: os.Getenv("KAFKA_TLS_CLIENT_CERT"),
			ClientKeyPath:  os.Getenv("KAFKA_TLS_CLIENT_KEY"),
		},
		SASL: SASLConfig{
			Mechanism: os.Getenv("KAFKA_SASL_MECHANISM"),
			Username:  os.Getenv("KAFKA_SASL_USERNAME"),
			Password:  os.Getenv("KAFKA_SASL_PASSWORD"),
		},
	}
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.Brokers = append(cfg.Brokers, b)
		}
	}
	if v, err := strconv.ParseBool(os.Getenv("KAFKA_ASYNC")); err == nil {
		cfg.Async = v
	}
	if v, err := strconv.ParseBool(os.Getenv("KAFKA_ALLOW_AUTO_TOPIC_CREATION")); err == nil {
		cfg.AllowAutoTopicCreation = v
	}
	if v, err := strconv.ParseBool(os.Getenv("KAFKA_TLS_ENABLED")); err == nil {
		cfg.TLS.Enabled = v
	}
	if v, err := strconv.ParseBool(os.Getenv("KAFKA_TLS_INSECURE_SKIP_VERIFY")); err == nil {
		cfg.TLS.InsecureSkipVerify = v
	}
	if v, err := strconv.ParseBool(os.Getenv("KAFKA_SASL_ENABLED")); err == nil {
		cfg.SASL.Enabled = v
	}
	if v, err := strconv.Atoi(os.Getenv("KAFKA_BATCH_SIZE")); err == nil {
		cfg.BatchSize = v
	}
	if v, err := strconv.Atoi(os.Getenv("KAFKA_MAX_ATTEMPTS")); err == nil {
		cfg.MaxAttempts = v
	}
	if v, err := time.ParseDuration(os.Getenv("KAFKA_BATCH_TIMEOUT")); err == nil {
		cfg.BatchTimeout = v
	}
	if v, err := time.ParseDuration(os.Getenv("KAFKA_WRITE_TIMEOUT")); err == nil {
		cfg.WriteTimeout = v
	}
	if v, err := time.ParseDuration(os.Getenv("KAFKA_DIAL_TIMEOUT")); err == nil {
		cfg.DialTimeout = v
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.RequiredAcks == "" {
		c.RequiredAcks = DefaultRequiredAcks
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = DefaultBatchTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
}

// Validate checks the configuration after defaults have been applied.
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("%w: at least one broker is required", ErrInvalidConfig)
	}
	switch c.RequiredAcks {
	case "all", "one", "none":
	default:
		return fmt.Errorf("%w: unknown required acks %q", ErrInvalidConfig, c.RequiredAcks)
	}
	switch c.CompressionCodec {
	case "", "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("%w: unknown compression codec %q", ErrInvalidConfig, c.CompressionCodec)
	}
	if c.SASL.Enabled {
		switch c.SASL.Mechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return fmt.Errorf("%w: unsupported SASL mechanism %q", ErrInvalidConfig, c.SASL.Mechanism)
		}
	}
	return nil
}
