package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kernelctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("KERNELCTL_PROVIDER", "")
	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, backendOpenAI, cfg.Provider)
	assert.Equal(t, backendOpenAI, cfg.Embeddings, "embeddings follow the provider")
	assert.Equal(t, backendMemory, cfg.VectorStore)
	assert.Equal(t, backendNone, cfg.History)
	assert.Equal(t, backendNone, cfg.Events)
	assert.Equal(t, "kernelctl", cfg.Logger.ServiceName)
	assert.Equal(t, 8, cfg.Loop.MaxParallelFunctionCalls)
	assert.Nil(t, cfg.Chat.Temperature)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("KERNELCTL_PROVIDER", "ollama")
	t.Setenv("KERNELCTL_EMBEDDINGS", "inference")
	t.Setenv("KERNELCTL_TEMPERATURE", "0.2")
	t.Setenv("OLLAMA_SERVER_URL", "http://ollama:11434")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, backendOllama, cfg.Provider)
	assert.Equal(t, backendInference, cfg.Embeddings)
	require.NotNil(t, cfg.Chat.Temperature)
	assert.InDelta(t, 0.2, *cfg.Chat.Temperature, 1e-9)
	assert.Equal(t, "http://ollama:11434", cfg.Ollama.ServerURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfigFileOverridesEnvironment(t *testing.T) {
	t.Setenv("KERNELCTL_PROVIDER", "ollama")
	t.Setenv("OLLAMA_SERVER_URL", "http://ollama:11434")
	t.Setenv("TEST_QDRANT_HOST", "qdrant.internal")

	path := writeConfig(t, `
provider: huggingface
vector_store: qdrant
history: redis
events: rabbit
chat:
  system_message: You are terse.
  max_history: 20
  temperature: 0.7
loop:
  max_parallel_function_calls: 2
ingest:
  batchSize: 16
qdrant:
  endpoint: ${TEST_QDRANT_HOST}
  timeout: 3s
rabbit:
  channel:
    exchange_name: audit
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, backendHuggingFace, cfg.Provider)
	assert.Equal(t, backendHuggingFace, cfg.Embeddings)
	assert.Equal(t, backendQdrant, cfg.VectorStore)
	assert.Equal(t, backendRedis, cfg.History)
	assert.Equal(t, backendRabbit, cfg.Events)
	assert.Equal(t, "You are terse.", cfg.Chat.SystemMessage)
	assert.Equal(t, 20, cfg.Chat.MaxHistory)
	require.NotNil(t, cfg.Chat.Temperature)
	assert.InDelta(t, 0.7, *cfg.Chat.Temperature, 1e-9)
	assert.Equal(t, 2, cfg.Loop.MaxParallelFunctionCalls)
	assert.Equal(t, 16, cfg.Ingest.BatchSize)
	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Endpoint)
	assert.Equal(t, 3*time.Second, cfg.Qdrant.Timeout)
	assert.Equal(t, "audit", cfg.Rabbit.Channel.ExchangeName)

	// keys the file does not set keep their environment values
	assert.Equal(t, "http://ollama:11434", cfg.Ollama.ServerURL)
	assert.Equal(t, "topic", cfg.Rabbit.Channel.ExchangeType)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, "provider: [unclosed"))
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, "provider: gpt\nvector_store: faiss\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errInvalidConfig)
	assert.Contains(t, err.Error(), "provider")
	assert.Contains(t, err.Error(), "vector_store")
}
