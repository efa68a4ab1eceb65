package openai

import (
	"fmt"
	"os"
	"strconv"
)

const (
	DefaultServiceID          = "openai"
	DefaultEmbeddingModelID   = "text-embedding-3-small"
	DefaultImageModelID       = "dall-e-3"
	DefaultAudioModelID       = "tts-1"
	DefaultAzureAPIVersion    = "2024-10-21"
	defaultHTTPTimeoutSeconds = 60
)

// Config configures the OpenAI connector. Setting Azure.Endpoint switches
// the client to Azure OpenAI.
type Config struct {
	// ServiceID is the kernel service id of the chat model. Embedding,
	// image and audio services get "_embedding", "_image", "_audio" appended.
	ServiceID string `yaml:"service_id" envconfig:"OPENAI_SERVICE_ID"`

	APIKey  string `yaml:"api_key" envconfig:"OPENAI_API_KEY"`
	OrgID   string `yaml:"org_id" envconfig:"OPENAI_ORG_ID"`
	BaseURL string `yaml:"base_url" envconfig:"OPENAI_BASE_URL"`

	ChatModelID      string `yaml:"chat_model_id" envconfig:"OPENAI_CHAT_MODEL_ID"`
	EmbeddingModelID string `yaml:"embedding_model_id" envconfig:"OPENAI_EMBEDDING_MODEL_ID"`
	ImageModelID     string `yaml:"image_model_id" envconfig:"OPENAI_IMAGE_MODEL_ID"`
	AudioModelID     string `yaml:"audio_model_id" envconfig:"OPENAI_AUDIO_MODEL_ID"`

	// EmbeddingDimensions shortens embeddings on models that support it.
	EmbeddingDimensions int `yaml:"embedding_dimensions" envconfig:"OPENAI_EMBEDDING_DIMENSIONS"`

	// StreamUsage requests a final usage chunk on streamed responses.
	StreamUsage bool `yaml:"stream_usage" envconfig:"OPENAI_STREAM_USAGE"`

	HTTPTimeoutS int `yaml:"http_timeout_seconds" envconfig:"OPENAI_HTTP_TIMEOUT_SECONDS"`

	Azure AzureConfig `yaml:"azure"`
}

// AzureConfig selects an Azure OpenAI deployment.
type AzureConfig struct {
	Endpoint       string `yaml:"endpoint" envconfig:"AZURE_OPENAI_ENDPOINT"`
	APIKey         string `yaml:"api_key" envconfig:"AZURE_OPENAI_API_KEY"`
	APIVersion     string `yaml:"api_version" envconfig:"AZURE_OPENAI_API_VERSION"`
	DeploymentName string `yaml:"deployment_name" envconfig:"AZURE_OPENAI_DEPLOYMENT_NAME"`
}

// NewConfig reads the configuration from environment variables.
func NewConfig() *Config {
	cfg := &Config{
		ServiceID:        os.Getenv("OPENAI_SERVICE_ID"),
		APIKey:           os.Getenv("OPENAI_API_KEY"),
		OrgID:            os.Getenv("OPENAI_ORG_ID"),
		BaseURL:          os.Getenv("OPENAI_BASE_URL"),
		ChatModelID:      os.Getenv("OPENAI_CHAT_MODEL_ID"),
		EmbeddingModelID: os.Getenv("OPENAI_EMBEDDING_MODEL_ID"),
		ImageModelID:     os.Getenv("OPENAI_IMAGE_MODEL_ID"),
		AudioModelID:     os.Getenv("OPENAI_AUDIO_MODEL_ID"),
		StreamUsage:      os.Getenv("OPENAI_STREAM_USAGE") == "true",
		Azure: AzureConfig{
			Endpoint:       os.Getenv("AZURE_OPENAI_ENDPOINT"),
			APIKey:         os.Getenv("AZURE_OPENAI_API_KEY"),
			APIVersion:     os.Getenv("AZURE_OPENAI_API_VERSION"),
			DeploymentName: os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME"),
		},
	}
	if v := os.Getenv("OPENAI_EMBEDDING_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EmbeddingDimensions = n
		}
	}
	if v := os.Getenv("OPENAI_HTTP_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPTimeoutS = n
		}
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ServiceID == "" {
		c.ServiceID = DefaultServiceID
	}
	if c.EmbeddingModelID == "" {
		c.EmbeddingModelID = DefaultEmbeddingModelID
	}
	if c.ImageModelID == "" {
		c.ImageModelID = DefaultImageModelID
	}
	if c.AudioModelID == "" {
		c.AudioModelID = DefaultAudioModelID
	}
	if c.HTTPTimeoutS <= 0 {
		c.HTTPTimeoutS = defaultHTTPTimeoutSeconds
	}
	if c.Azure.Endpoint != "" && c.Azure.APIVersion == "" {
		c.Azure.APIVersion = DefaultAzureAPIVersion
	}
}

// IsAzure reports whether the config targets Azure OpenAI.
func (c *Config) IsAzure() bool { return c.Azure.Endpoint != "" }

// Validate ensures required fields are present.
func (c *Config) Validate() error {
	if c.IsAzure() {
		if c.Azure.APIKey == "" {
			return fmt.Errorf("%w: missing AZURE_OPENAI_API_KEY", ErrInvalidConfig)
		}
		if c.ChatModelID == "" && c.Azure.DeploymentName == "" {
			return fmt.Errorf("%w: missing AZURE_OPENAI_DEPLOYMENT_NAME", ErrInvalidConfig)
		}
		return nil
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: missing OPENAI_API_KEY", ErrInvalidConfig)
	}
	if c.ChatModelID == "" {
		return fmt.Errorf("%w: missing OPENAI_CHAT_MODEL_ID", ErrInvalidConfig)
	}
	return nil
}
