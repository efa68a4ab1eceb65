package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/huggingface"
	"github.com/Aleph-Alpha/connectors/v1/inference"
	"github.com/Aleph-Alpha/connectors/v1/kafka"
	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/metrics"
	"github.com/Aleph-Alpha/connectors/v1/minio"
	"github.com/Aleph-Alpha/connectors/v1/mistral"
	"github.com/Aleph-Alpha/connectors/v1/ollama"
	"github.com/Aleph-Alpha/connectors/v1/openai"
	"github.com/Aleph-Alpha/connectors/v1/postgres"
	"github.com/Aleph-Alpha/connectors/v1/qdrant"
	"github.com/Aleph-Alpha/connectors/v1/rabbit"
	"github.com/Aleph-Alpha/connectors/v1/redis"
	"github.com/Aleph-Alpha/connectors/v1/tracer"
	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

// Backend names accepted in the configuration.
const (
	backendNone        = "none"
	backendOpenAI      = "openai"
	backendMistral     = "mistral"
	backendOllama      = "ollama"
	backendHuggingFace = "huggingface"
	backendInference   = "inference"
	backendMemory      = "memory"
	backendQdrant      = "qdrant"
	backendPostgres    = "postgres"
	backendRedis       = "redis"
	backendKafka       = "kafka"
	backendRabbit      = "rabbit"
)

var errInvalidConfig = errors.New("[Kernelctl] invalid configuration")

// Config is the kernelctl configuration. Defaults come from the environment
// of every connector package, a yaml file overrides the keys it sets.
type Config struct {
	Logger  logger.Config  `yaml:"logger"`
	Metrics metrics.Config `yaml:"metrics"`
	Tracer  tracer.Config  `yaml:"tracer"`

	// Provider serves chat: openai, mistral, ollama or huggingface.
	Provider string `yaml:"provider" envconfig:"KERNELCTL_PROVIDER"`

	// Embeddings serves embeddings: any chat provider or inference.
	// Defaults to Provider.
	Embeddings string `yaml:"embeddings" envconfig:"KERNELCTL_EMBEDDINGS"`

	// VectorStore is memory, qdrant or postgres.
	VectorStore string `yaml:"vector_store" envconfig:"KERNELCTL_VECTOR_STORE"`

	// History persists chat sessions: none, redis or postgres.
	History string `yaml:"history" envconfig:"KERNELCTL_HISTORY"`

	// Events receives function invocation events: none, kafka or rabbit.
	Events string `yaml:"events" envconfig:"KERNELCTL_EVENTS"`

	// Media stores generated images and audio in MinIO.
	Media bool `yaml:"media" envconfig:"KERNELCTL_MEDIA"`

	// Rerank re-orders search hits with the inference reranker.
	Rerank bool `yaml:"rerank" envconfig:"KERNELCTL_RERANK"`

	Chat   ChatConfig            `yaml:"chat"`
	Loop   ai.Config             `yaml:"loop"`
	Ingest vectordb.IngestConfig `yaml:"ingest"`

	OpenAI      openai.Config      `yaml:"openai"`
	Mistral     mistral.Config     `yaml:"mistral"`
	Ollama      ollama.Config      `yaml:"ollama"`
	HuggingFace huggingface.Config `yaml:"huggingface"`
	Inference   inference.Config   `yaml:"inference"`
	Qdrant      qdrant.Config      `yaml:"qdrant"`
	Postgres    postgres.Config    `yaml:"postgres"`
	Redis       redis.Config       `yaml:"redis"`
	Kafka       kafka.Config       `yaml:"kafka"`
	Rabbit      rabbit.Config      `yaml:"rabbit"`
	Minio       minio.Config       `yaml:"minio"`
}

// ChatConfig tunes the chat command.
type ChatConfig struct {
	SystemMessage string   `yaml:"system_message" envconfig:"KERNELCTL_SYSTEM_MESSAGE"`
	MaxTokens     int      `yaml:"max_tokens" envconfig:"KERNELCTL_MAX_TOKENS"`
	Temperature   *float64 `yaml:"temperature" envconfig:"KERNELCTL_TEMPERATURE"`

	// MaxHistory is the number of messages kept when a request is sent.
	// The history is truncated once it grows past twice that. 0 keeps all.
	MaxHistory int `yaml:"max_history" envconfig:"KERNELCTL_MAX_HISTORY"`
}

// defaultConfig builds the configuration from the environment.
func defaultConfig() Config {
	cfg := Config{
		Logger: logger.Config{
			Level:         envOr("ZAP_LOGGER_LEVEL", logger.Info),
			ServiceName:   envOr("LOGGER_SERVICE_NAME", "kernelctl"),
			EnableTracing: envBool("LOGGER_ENABLE_TRACING", true),
			Development:   envBool("LOGGER_DEVELOPMENT", false),
		},
		Metrics: metrics.Config{
			Address:                 os.Getenv("METRICS_ADDRESS"),
			EnableDefaultCollectors: envBool("METRICS_ENABLE_DEFAULT_COLLECTORS", false),
			Namespace:               envOr("METRICS_NAMESPACE", "connectors"),
			ServiceName:             envOr("METRICS_SERVICE_NAME", "kernelctl"),
		},
		Tracer: tracer.Config{
			ServiceName:  envOr("TRACER_SERVICE_NAME", "kernelctl"),
			AppEnv:       envOr("APP_ENV", "development"),
			EnableExport: envBool("TRACER_ENABLE_EXPORT", false),
			Endpoint:     os.Getenv("TRACER_ENDPOINT"),
			Insecure:     envBool("TRACER_INSECURE", false),
			SampleRatio:  envFloat("TRACER_SAMPLE_RATIO", 1),
		},
		Provider:    envOr("KERNELCTL_PROVIDER", backendOpenAI),
		Embeddings:  os.Getenv("KERNELCTL_EMBEDDINGS"),
		VectorStore: envOr("KERNELCTL_VECTOR_STORE", backendMemory),
		History:     envOr("KERNELCTL_HISTORY", backendNone),
		Events:      envOr("KERNELCTL_EVENTS", backendNone),
		Media:       envBool("KERNELCTL_MEDIA", false),
		Rerank:      envBool("KERNELCTL_RERANK", false),
		Chat: ChatConfig{
			SystemMessage: os.Getenv("KERNELCTL_SYSTEM_MESSAGE"),
			MaxTokens:     envInt("KERNELCTL_MAX_TOKENS", 0),
			MaxHistory:    envInt("KERNELCTL_MAX_HISTORY", 0),
		},
		Loop: ai.Config{
			MaxParallelFunctionCalls: envInt("AI_MAX_PARALLEL_FUNCTION_CALLS", ai.DefaultMaxParallelFunctionCalls),
		},
		Ingest: vectordb.IngestConfig{
			BatchSize:   envInt("VECTORDB_INGEST_BATCH_SIZE", vectordb.DefaultIngestBatchSize),
			Workers:     envInt("VECTORDB_INGEST_WORKERS", vectordb.DefaultIngestWorkers),
			MaxAttempts: envInt("VECTORDB_INGEST_MAX_ATTEMPTS", vectordb.DefaultIngestMaxAttempts),
			BaseDelay:   vectordb.DefaultIngestBaseDelay,
			TextField:   envOr("VECTORDB_INGEST_TEXT_FIELD", vectordb.DefaultTextField),
		},
		OpenAI:      *openai.NewConfig(),
		Mistral:     *mistral.NewConfig(),
		Ollama:      *ollama.NewConfig(),
		HuggingFace: *huggingface.NewConfig(),
		Inference:   *inference.NewConfig(),
		Qdrant:      *qdrant.NewConfig(),
		Postgres:    postgres.NewConfig(),
		Redis:       redis.NewConfig(),
		Kafka:       kafka.NewConfig(),
		Rabbit:      rabbit.NewConfig(),
		Minio:       minio.NewConfig(),
	}
	if v, err := strconv.ParseFloat(os.Getenv("KERNELCTL_TEMPERATURE"), 64); err == nil {
		cfg.Chat.Temperature = &v
	}
	return cfg
}

// loadConfig returns the environment defaults overlaid with the yaml file
// at path. ${VAR} references in the file are expanded first. An empty path
// skips the file.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if cfg.Embeddings == "" {
		cfg.Embeddings = cfg.Provider
	}
	return cfg, cfg.Validate()
}

// Validate checks the backend selections. Connector settings are validated
// by the connectors when they are built.
func (c Config) Validate() error {
	oneOf := func(field, value string, allowed ...string) error {
		for _, a := range allowed {
			if value == a {
				return nil
			}
		}
		return fmt.Errorf("%w: %s must be one of %v, got %q", errInvalidConfig, field, allowed, value)
	}
	return errors.Join(
		oneOf("provider", c.Provider, backendOpenAI, backendMistral, backendOllama, backendHuggingFace),
		oneOf("embeddings", c.Embeddings, backendOpenAI, backendMistral, backendOllama, backendHuggingFace, backendInference),
		oneOf("vector_store", c.VectorStore, backendMemory, backendQdrant, backendPostgres),
		oneOf("history", c.History, backendNone, backendRedis, backendPostgres),
		oneOf("events", c.Events, backendNone, backendKafka, backendRabbit),
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}
