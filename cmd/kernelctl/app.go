package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/events"
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

// app holds what the commands share: configuration, logging, metrics,
// tracing and the connectors built so far. Connectors are created on first
// use and closed in reverse order by close.
type app struct {
	cfg     Config
	log     *logger.LoggerClient
	metrics *metrics.Metrics
	tracer  *tracer.Tracer

	openai      *openai.Client
	mistral     *mistral.Client
	ollama      *ollama.Client
	huggingface *huggingface.Client
	inference   *inference.Client
	postgres    *postgres.Postgres

	closers []func(context.Context) error
}

func newApp(cfg Config) *app {
	log := logger.NewLoggerClient(cfg.Logger)
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewMetrics(cfg.Metrics),
		tracer:  tracer.NewClient(cfg.Tracer, log),
	}
	a.onClose(a.tracer.Shutdown)

	if cfg.Metrics.Address != "" {
		go func() {
			if err := a.metrics.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("error in Prometheus metrics server", err, nil)
			}
		}()
		a.onClose(a.metrics.Server.Shutdown)
	}
	return a
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close releases everything in reverse order of creation.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for _, fn := range slices.Backward(a.closers) {
		errs = append(errs, fn(ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) openAIClient() (*openai.Client, error) {
	if a.openai == nil {
		c, err := openai.NewClient(a.cfg.OpenAI, a.log, openai.WithObserver(a.metrics))
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		a.openai = c
	}
	return a.openai, nil
}

func (a *app) mistralClient() (*mistral.Client, error) {
	if a.mistral == nil {
		c, err := mistral.NewClient(a.cfg.Mistral, a.log, a.metrics)
		if err != nil {
			return nil, fmt.Errorf("mistral: %w", err)
		}
		a.mistral = c
	}
	return a.mistral, nil
}

func (a *app) ollamaClient() (*ollama.Client, error) {
	if a.ollama == nil {
		c, err := ollama.NewClient(a.cfg.Ollama, a.log, ollama.WithObserver(a.metrics))
		if err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}
		a.ollama = c
	}
	return a.ollama, nil
}

func (a *app) huggingFaceClient() (*huggingface.Client, error) {
	if a.huggingface == nil {
		c, err := huggingface.NewClient(a.cfg.HuggingFace, a.log, huggingface.WithObserver(a.metrics))
		if err != nil {
			return nil, fmt.Errorf("huggingface: %w", err)
		}
		a.huggingface = c
	}
	return a.huggingface, nil
}

func (a *app) inferenceClient() (*inference.Client, error) {
	if a.inference == nil {
		c, err := inference.NewClient(a.cfg.Inference, a.log, inference.WithObserver(a.metrics))
		if err != nil {
			return nil, fmt.Errorf("inference: %w", err)
		}
		a.inference = c
		a.onClose(func(context.Context) error { return c.Close() })
	}
	return a.inference, nil
}

func (a *app) postgresClient() (*postgres.Postgres, error) {
	if a.postgres == nil {
		pg, err := postgres.NewPostgres(a.cfg.Postgres, a.log)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.postgres = pg
		a.onClose(func(context.Context) error { return pg.GracefulShutdown() })
	}
	return a.postgres, nil
}

// chatCompletion returns the configured provider wrapped in the
// function-calling loop.
func (a *app) chatCompletion(hooks ai.ChatHooks) (*ai.FunctionCallingClient, error) {
	opts := []ai.ClientOption{
		ai.WithConfig(a.cfg.Loop),
		ai.WithHooks(hooks),
		ai.WithLogger(a.log),
		ai.WithObserver(a.metrics),
	}
	switch a.cfg.Provider {
	case backendOpenAI:
		c, err := a.openAIClient()
		if err != nil {
			return nil, err
		}
		return c.ChatCompletion(opts...), nil
	case backendMistral:
		c, err := a.mistralClient()
		if err != nil {
			return nil, err
		}
		return c.ChatCompletion(opts...), nil
	case backendOllama:
		c, err := a.ollamaClient()
		if err != nil {
			return nil, err
		}
		return c.ChatCompletion(opts...), nil
	case backendHuggingFace:
		c, err := a.huggingFaceClient()
		if err != nil {
			return nil, err
		}
		return c.ChatCompletion(opts...), nil
	}
	return nil, fmt.Errorf("%w: unknown provider %q", errInvalidConfig, a.cfg.Provider)
}

func (a *app) embedder() (ai.EmbeddingGenerator, error) {
	switch a.cfg.Embeddings {
	case backendOpenAI:
		c, err := a.openAIClient()
		if err != nil {
			return nil, err
		}
		return c.EmbeddingGenerator(), nil
	case backendMistral:
		c, err := a.mistralClient()
		if err != nil {
			return nil, err
		}
		return c.EmbeddingGenerator(), nil
	case backendOllama:
		c, err := a.ollamaClient()
		if err != nil {
			return nil, err
		}
		return c.EmbeddingGenerator(), nil
	case backendHuggingFace:
		c, err := a.huggingFaceClient()
		if err != nil {
			return nil, err
		}
		return c.EmbeddingGenerator(), nil
	case backendInference:
		c, err := a.inferenceClient()
		if err != nil {
			return nil, err
		}
		return c.EmbeddingGenerator(), nil
	}
	return nil, fmt.Errorf("%w: unknown embeddings backend %q", errInvalidConfig, a.cfg.Embeddings)
}

func (a *app) vectorStore() (vectordb.Service, error) {
	switch a.cfg.VectorStore {
	case backendMemory:
		return vectordb.NewMemoryStore(), nil
	case backendQdrant:
		c, err := qdrant.NewQdrantClient(&a.cfg.Qdrant, a.log, qdrant.WithObserver(a.metrics))
		if err != nil {
			return nil, fmt.Errorf("qdrant: %w", err)
		}
		a.onClose(func(context.Context) error { return c.Close() })
		return c, nil
	case backendPostgres:
		pg, err := a.postgresClient()
		if err != nil {
			return nil, err
		}
		return postgres.NewVectorStore(pg, postgres.WithVectorStoreObserver(a.metrics)), nil
	}
	return nil, fmt.Errorf("%w: unknown vector store %q", errInvalidConfig, a.cfg.VectorStore)
}

// textSearch combines the embedder and the vector store, with the inference
// reranker when enabled.
func (a *app) textSearch() (*vectordb.TextSearch, error) {
	embedder, err := a.embedder()
	if err != nil {
		return nil, err
	}
	store, err := a.vectorStore()
	if err != nil {
		return nil, err
	}
	opts := []vectordb.TextSearchOption{vectordb.WithTextField(a.cfg.Ingest.TextField)}
	if a.cfg.Rerank {
		c, err := a.inferenceClient()
		if err != nil {
			return nil, err
		}
		opts = append(opts, vectordb.WithReranker(c.Reranker(), 4))
	}
	return vectordb.NewTextSearch(embedder, store, opts...), nil
}

// historyStore returns nil when sessions are not persisted.
func (a *app) historyStore(ctx context.Context) (contents.ChatHistoryStore, error) {
	switch a.cfg.History {
	case backendNone:
		return nil, nil
	case backendRedis:
		c, err := redis.NewClient(a.cfg.Redis, a.log)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		c.WithObserver(a.metrics)
		a.onClose(func(context.Context) error { return c.Close() })
		return redis.NewChatHistoryStore(c), nil
	case backendPostgres:
		pg, err := a.postgresClient()
		if err != nil {
			return nil, err
		}
		return postgres.NewChatHistoryStore(ctx, pg)
	}
	return nil, fmt.Errorf("%w: unknown history store %q", errInvalidConfig, a.cfg.History)
}

// eventSink returns nil when events are not published.
func (a *app) eventSink() (events.Sink, error) {
	switch a.cfg.Events {
	case backendNone:
		return nil, nil
	case backendKafka:
		s, err := kafka.NewSink(a.cfg.Kafka, a.log)
		if err != nil {
			return nil, fmt.Errorf("kafka: %w", err)
		}
		s.WithObserver(a.metrics)
		a.onClose(func(context.Context) error { return s.Close() })
		return s, nil
	case backendRabbit:
		c, err := rabbit.NewClient(a.cfg.Rabbit, a.log)
		if err != nil {
			return nil, fmt.Errorf("rabbit: %w", err)
		}
		c.WithObserver(a.metrics)
		go c.RetryConnection()
		s := rabbit.NewSinkFromClient(c)
		a.onClose(func(context.Context) error { return s.Close() })
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown event sink %q", errInvalidConfig, a.cfg.Events)
}

// mediaStore returns nil when media is not kept in MinIO.
func (a *app) mediaStore() (*minio.MediaStore, error) {
	if !a.cfg.Media {
		return nil, nil
	}
	c, err := minio.NewClient(a.cfg.Minio, a.log)
	if err != nil {
		return nil, fmt.Errorf("minio: %w", err)
	}
	c.WithObserver(a.metrics)
	a.onClose(func(context.Context) error {
		c.GracefulShutdown()
		return nil
	})
	return minio.NewMediaStore(c), nil
}
