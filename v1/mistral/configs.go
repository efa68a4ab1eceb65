package mistral

import (
	"fmt"
	"os"
)

const (
	DefaultBaseURL          = "https://api.mistral.ai/v1"
	DefaultServiceID        = "mistral"
	DefaultEmbeddingModelID = "mistral-embed"
)

// Config configures the Mistral connector.
type Config struct {
	ServiceID        string `yaml:"service_id" envconfig:"MISTRALAI_SERVICE_ID"`
	APIKey           string `yaml:"api_key" envconfig:"MISTRALAI_API_KEY"`
	BaseURL          string `yaml:"base_url" envconfig:"MISTRALAI_BASE_URL"`
	ChatModelID      string `yaml:"chat_model_id" envconfig:"MISTRALAI_CHAT_MODEL_ID"`
	EmbeddingModelID string `yaml:"embedding_model_id" envconfig:"MISTRALAI_EMBEDDING_MODEL_ID"`
}

// NewConfig reads the configuration from environment variables.
func NewConfig() *Config {
	return &Config{
		ServiceID:        os.Getenv("MISTRALAI_SERVICE_ID"),
		APIKey:           os.Getenv("MISTRALAI_API_KEY"),
		BaseURL:          os.Getenv("MISTRALAI_BASE_URL"),
		ChatModelID:      os.Getenv("MISTRALAI_CHAT_MODEL_ID"),
		EmbeddingModelID: os.Getenv("MISTRALAI_EMBEDDING_MODEL_ID"),
	}
}

// Validate ensures required fields are present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("[Mistral] invalid config: missing MISTRALAI_API_KEY")
	}
	if c.ChatModelID == "" {
		return fmt.Errorf("[Mistral] invalid config: missing MISTRALAI_CHAT_MODEL_ID")
	}
	return nil
}
