package ollama

import (
	"fmt"
	"os"
	"strconv"
)

const (
	DefaultServerURL        = "http://localhost:11434"
	DefaultServiceID        = "ollama"
	DefaultEmbeddingModelID = "nomic-embed-text"
)

// Config configures the Ollama connector.
type Config struct {
	ServiceID      string `yaml:"service_id" envconfig:"OLLAMA_SERVICE_ID"`
	ServerURL      string `yaml:"server_url" envconfig:"OLLAMA_SERVER_URL"`
	Model          string `yaml:"model" envconfig:"OLLAMA_CHAT_MODEL_ID"`
	EmbeddingModel string `yaml:"embedding_model" envconfig:"OLLAMA_EMBEDDING_MODEL_ID"`

	// KeepAlive controls how long the server keeps the model loaded, e.g. "5m".
	KeepAlive string `yaml:"keep_alive" envconfig:"OLLAMA_KEEP_ALIVE"`

	// PullModel pulls missing models before the first request.
	PullModel bool `yaml:"pull_model" envconfig:"OLLAMA_PULL_MODEL"`
}

// NewConfig reads the configuration from environment variables.
func NewConfig() *Config {
	pull, _ := strconv.ParseBool(os.Getenv("OLLAMA_PULL_MODEL"))
	return &Config{
		ServiceID:      os.Getenv("OLLAMA_SERVICE_ID"),
		ServerURL:      os.Getenv("OLLAMA_SERVER_URL"),
		Model:          os.Getenv("OLLAMA_CHAT_MODEL_ID"),
		EmbeddingModel: os.Getenv("OLLAMA_EMBEDDING_MODEL_ID"),
		KeepAlive:      os.Getenv("OLLAMA_KEEP_ALIVE"),
		PullModel:      pull,
	}
}

func (c *Config) applyDefaults() {
	if c.ServiceID == "" {
		c.ServiceID = DefaultServiceID
	}
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = DefaultEmbeddingModelID
	}
}

// Validate ensures required fields are present.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("[Ollama] invalid config: missing OLLAMA_CHAT_MODEL_ID")
	}
	return nil
}
