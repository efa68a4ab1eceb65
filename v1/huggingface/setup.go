package huggingface

import (
	"fmt"
	"net/http"

	hfembeddings "github.com/tmc/langchaingo/embeddings/huggingface"
	"github.com/tmc/langchaingo/llms/huggingface"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/langchain"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// Client holds the langchaingo HuggingFace model and embedder.
type Client struct {
	llm      *huggingface.LLM
	embedder *hfembeddings.Huggingface
	cfg      Config
	logger   langchain.Logger
	observer observability.Observer
}

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

// NewClient builds the text-generation model and the embedder on top of it.
func NewClient(cfg Config, logger langchain.Logger, opts ...Option) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	llmOpts := []huggingface.Option{
		huggingface.WithToken(cfg.Token),
		huggingface.WithModel(cfg.Model),
		huggingface.WithURL(cfg.URL),
	}
	if o.httpClient != nil {
		llmOpts = append(llmOpts, huggingface.WithHTTPClient(o.httpClient))
	}
	llm, err := huggingface.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("[HuggingFace] failed to create model: %w", err)
	}
	embedder, err := hfembeddings.NewHuggingface(
		hfembeddings.WithClient(*llm),
		hfembeddings.WithModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("[HuggingFace] failed to create embedder: %w", err)
	}

	logger.Info("huggingface client initialised", nil, map[string]interface{}{
		"model":           cfg.Model,
		"embedding_model": cfg.EmbeddingModel,
	})
	return &Client{llm: llm, embedder: embedder, cfg: cfg, logger: logger, observer: o.observer}, nil
}

func (c *Client) adapterOptions() []langchain.Option {
	return []langchain.Option{
		langchain.WithComponent("huggingface"),
		langchain.WithObserver(c.observer),
		langchain.WithLogger(c.logger),
	}
}

// ChatModel returns a chat model over the text-generation endpoint. The
// whole conversation is rendered into one prompt.
func (c *Client) ChatModel() *langchain.ChatModel {
	return langchain.NewChatModel(c.llm, c.cfg.ServiceID, c.cfg.Model,
		append(c.adapterOptions(), langchain.WithHistoryMode(langchain.HistoryPrompt))...)
}

// ChatCompletion wraps the chat model in the function-calling loop.
func (c *Client) ChatCompletion(opts ...ai.ClientOption) *ai.FunctionCallingClient {
	return ai.NewFunctionCallingClient(c.ChatModel(), append([]ai.ClientOption{ai.WithLogger(c.logger)}, opts...)...)
}

func (c *Client) EmbeddingGenerator() *langchain.EmbeddingGenerator {
	return langchain.NewEmbeddingGenerator(c.embedder, c.cfg.ServiceID+"_embedding", c.cfg.EmbeddingModel, c.adapterOptions()...)
}
