package inference

import (
	"fmt"
	"os"
	"strconv"
)

const (
	DefaultServiceID    = "inference"
	DefaultHTTPTimeoutS = 30
	DefaultBatchSize    = 128
)

// INFERENCE_ENDPOINT must point to the root of the inference service (no
// /embeddings or /rerank appended). Paths are appended by the client.

type Config struct {
	ServiceID string `yaml:"service_id" envconfig:"INFERENCE_SERVICE_ID"`

	// Inference endpoint and auth
	Endpoint     string `yaml:"endpoint" envconfig:"INFERENCE_ENDPOINT"`
	ServiceToken string `yaml:"service_token" envconfig:"INFERENCE_SERVICE_TOKEN"`
	HTTPTimeoutS int    `yaml:"http_timeout_seconds" envconfig:"INFERENCE_HTTP_TIMEOUT_SECONDS"`

	EmbeddingModel string `yaml:"embedding_model" envconfig:"INFERENCE_EMBEDDING_MODEL"`
	RerankModel    string `yaml:"rerank_model" envconfig:"INFERENCE_RERANK_MODEL"`

	// BatchSize caps the number of texts per embeddings request.
	BatchSize int `yaml:"batch_size" envconfig:"INFERENCE_BATCH_SIZE"`
}

// NewConfig reads from environment variables.
func NewConfig() *Config {
	return &Config{
		ServiceID:      os.Getenv("INFERENCE_SERVICE_ID"),
		Endpoint:       os.Getenv("INFERENCE_ENDPOINT"),
		ServiceToken:   os.Getenv("INFERENCE_SERVICE_TOKEN"),
		HTTPTimeoutS:   positiveInt(os.Getenv("INFERENCE_HTTP_TIMEOUT_SECONDS"), DefaultHTTPTimeoutS),
		EmbeddingModel: os.Getenv("INFERENCE_EMBEDDING_MODEL"),
		RerankModel:    os.Getenv("INFERENCE_RERANK_MODEL"),
		BatchSize:      positiveInt(os.Getenv("INFERENCE_BATCH_SIZE"), DefaultBatchSize),
	}
}

func positiveInt(v string, fallback int) int {
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return fallback
}

func (c *Config) applyDefaults() {
	if c.ServiceID == "" {
		c.ServiceID = DefaultServiceID
	}
	if c.HTTPTimeoutS <= 0 {
		c.HTTPTimeoutS = DefaultHTTPTimeoutS
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
}

// Validate ensures required fields are present.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: missing INFERENCE_ENDPOINT", ErrInvalidConfig)
	}
	if c.ServiceToken == "" {
		return fmt.Errorf("%w: missing INFERENCE_SERVICE_TOKEN", ErrInvalidConfig)
	}
	return nil
}
