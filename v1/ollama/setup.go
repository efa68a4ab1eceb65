package ollama

import (
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/langchain"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// Client holds the langchaingo Ollama models for chat and embeddings.
type Client struct {
	chat     *ollama.LLM
	embedder *embeddings.EmbedderImpl
	cfg      Config
	logger   langchain.Logger
	observer observability.Observer
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	observer   observability.Observer
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

func WithObserver(observer observability.Observer) Option {
	return func(o *clientOptions) { o.observer = observer }
}

// NewClient builds the chat and embedding models. No request is sent
// until the first completion.
func NewClient(cfg Config, logger langchain.Logger, opts ...Option) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	chat, err := ollama.New(llmOptions(cfg, cfg.Model, o)...)
	if err != nil {
		return nil, fmt.Errorf("[Ollama] failed to create chat model: %w", err)
	}
	embedLLM, err := ollama.New(llmOptions(cfg, cfg.EmbeddingModel, o)...)
	if err != nil {
		return nil, fmt.Errorf("[Ollama] failed to create embedding model: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(embedLLM)
	if err != nil {
		return nil, fmt.Errorf("[Ollama] failed to create embedder: %w", err)
	}

	logger.Info("ollama client initialised", nil, map[string]interface{}{
		"server_url": cfg.ServerURL,
		"chat_model": cfg.Model,
	})
	return &Client{chat: chat, embedder: embedder, cfg: cfg, logger: logger, observer: o.observer}, nil
}

func llmOptions(cfg Config, model string, o clientOptions) []ollama.Option {
	opts := []ollama.Option{ollama.WithModel(model), ollama.WithServerURL(cfg.ServerURL)}
	if cfg.KeepAlive != "" {
		opts = append(opts, ollama.WithKeepAlive(cfg.KeepAlive))
	}
	if cfg.PullModel {
		opts = append(opts, ollama.WithPullModel())
	}
	if o.httpClient != nil {
		opts = append(opts, ollama.WithHTTPClient(o.httpClient))
	}
	return opts
}

func (c *Client) adapterOptions() []langchain.Option {
	return []langchain.Option{
		langchain.WithComponent("ollama"),
		langchain.WithObserver(c.observer),
		langchain.WithLogger(c.logger),
	}
}

// ChatModel returns the chat model. Ollama accepts a single text part per
// message, so function calls and results are sent as text.
func (c *Client) ChatModel() *langchain.ChatModel {
	return langchain.NewChatModel(c.chat, c.cfg.ServiceID, c.cfg.Model,
		append(c.adapterOptions(), langchain.WithHistoryMode(langchain.HistoryText))...)
}

// ChatCompletion wraps the chat model in the function-calling loop.
func (c *Client) ChatCompletion(opts ...ai.ClientOption) *ai.FunctionCallingClient {
	return ai.NewFunctionCallingClient(c.ChatModel(), append([]ai.ClientOption{ai.WithLogger(c.logger)}, opts...)...)
}

func (c *Client) EmbeddingGenerator() *langchain.EmbeddingGenerator {
	return langchain.NewEmbeddingGenerator(c.embedder, c.cfg.ServiceID+"_embedding", c.cfg.EmbeddingModel, c.adapterOptions()...)
}

// LLM exposes the langchaingo chat model.
func (c *Client) LLM() *ollama.LLM { return c.chat }
