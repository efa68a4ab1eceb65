package minio

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	connectionHealthCheckInterval = 30 * time.Second
	defaultPresignedExpiry        = 24 * time.Hour
	maxPresignedExpiry            = 7 * 24 * time.Hour
)

// Config defines the top-level configuration for MinIO.
type Config struct {
	Connection      ConnectionConfig `yaml:"connection"`
	PresignedConfig PresignedConfig  `yaml:"presigned"`
}

// ConnectionConfig contains MinIO server connection details.
type ConnectionConfig struct {
	Endpoint        string `yaml:"endpoint" envconfig:"MINIO_ENDPOINT"` // e.g. "localhost:9000"
	AccessKeyID     string `yaml:"access_key_id" envconfig:"MINIO_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"MINIO_SECRET_ACCESS_KEY"`
	UseSSL          bool   `yaml:"use_ssl" envconfig:"MINIO_USE_SSL"`
	BucketName      string `yaml:"bucket_name" envconfig:"MINIO_BUCKET"`
	Region          string `yaml:"region" envconfig:"MINIO_REGION"`

	// AccessBucketCreation allows the client to create a missing bucket.
	AccessBucketCreation bool `yaml:"access_bucket_creation" envconfig:"MINIO_BUCKET_CREATION"`
}

// PresignedConfig contains configuration options for presigned URLs.
type PresignedConfig struct {
	// ExpiryDuration of the returned links. Default 24h, at most 7 days.
	ExpiryDuration time.Duration `yaml:"expiry" envconfig:"MINIO_PRESIGNED_EXPIRY"`

	// BaseURL replaces scheme and host of presigned links, e.g.
	// "https://cdn.example.com".
	BaseURL string `yaml:"base_url" envconfig:"MINIO_PRESIGNED_BASE_URL"`
}

// NewConfig reads the MINIO_* environment variables.
func NewConfig() Config {
	cfg := Config{
		Connection: ConnectionConfig{
			Endpoint:        os.Getenv("MINIO_ENDPOINT"),
			AccessKeyID:     os.Getenv("MINIO_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("MINIO_SECRET_ACCESS_KEY"),
			BucketName:      os.Getenv("MINIO_BUCKET"),
			Region:          os.Getenv("MINIO_REGION"),
		},
		PresignedConfig: PresignedConfig{
			BaseURL: os.Getenv("MINIO_PRESIGNED_BASE_URL"),
		},
	}
	if v, err := strconv.ParseBool(os.Getenv("MINIO_USE_SSL")); err == nil {
		cfg.Connection.UseSSL = v
	}
	if v, err := strconv.ParseBool(os.Getenv("MINIO_BUCKET_CREATION")); err == nil {
		cfg.Connection.AccessBucketCreation = v
	}
	if v, err := time.ParseDuration(os.Getenv("MINIO_PRESIGNED_EXPIRY")); err == nil {
		cfg.PresignedConfig.ExpiryDuration = v
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.PresignedConfig.ExpiryDuration == 0 {
		c.PresignedConfig.ExpiryDuration = defaultPresignedExpiry
	}
}

func (c Config) Validate() error {
	if c.Connection.Endpoint == "" {
		return fmt.Errorf("%w: endpoint cannot be empty", ErrInvalidConfig)
	}
	if c.Connection.BucketName == "" {
		return fmt.Errorf("%w: bucket name cannot be empty", ErrInvalidConfig)
	}
	if c.PresignedConfig.ExpiryDuration < time.Second || c.PresignedConfig.ExpiryDuration > maxPresignedExpiry {
		return fmt.Errorf("%w: presigned expiry must be between 1s and 7 days", ErrInvalidConfig)
	}
	return nil
}
