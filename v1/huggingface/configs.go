package huggingface

import (
	"fmt"
	"os"
)

const (
	DefaultServiceID        = "huggingface"
	DefaultURL              = "https://api-inference.huggingface.co"
	DefaultEmbeddingModelID = "BAAI/bge-small-en-v1.5"
)

// Config configures the HuggingFace inference connector.
type Config struct {
	ServiceID      string `yaml:"service_id" envconfig:"HUGGINGFACE_SERVICE_ID"`
	Token          string `yaml:"token" envconfig:"HF_TOKEN"`
	Model          string `yaml:"model" envconfig:"HUGGINGFACE_MODEL_ID"`
	EmbeddingModel string `yaml:"embedding_model" envconfig:"HUGGINGFACE_EMBEDDING_MODEL_ID"`
	URL            string `yaml:"url" envconfig:"HUGGINGFACE_URL"`
}

// NewConfig reads the configuration from environment variables.
func NewConfig() *Config {
	return &Config{
		ServiceID:      os.Getenv("HUGGINGFACE_SERVICE_ID"),
		Token:          os.Getenv("HF_TOKEN"),
		Model:          os.Getenv("HUGGINGFACE_MODEL_ID"),
		EmbeddingModel: os.Getenv("HUGGINGFACE_EMBEDDING_MODEL_ID"),
		URL:            os.Getenv("HUGGINGFACE_URL"),
	}
}

func (c *Config) applyDefaults() {
	if c.ServiceID == "" {
		c.ServiceID = DefaultServiceID
	}
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = DefaultEmbeddingModelID
	}
}

// Validate ensures required fields are present.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("[HuggingFace] invalid config: missing HF_TOKEN")
	}
	if c.Model == "" {
		return fmt.Errorf("[HuggingFace] invalid config: missing HUGGINGFACE_MODEL_ID")
	}
	return nil
}
