package inference

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// Logger is the logging contract of this package.
//
//go:generate mockgen -source=client.go -destination=mock_logger.go -package=inference
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// Client talks to an inference service exposing OpenAI-compatible
// /embeddings and Cohere-style /rerank endpoints (vLLM, TEI, Voyage).
type Client struct {
	baseURL    string
	httpClient *http.Client
	cfg        Config
	logger     Logger
	observer   observability.Observer
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithObserver(observer observability.Observer) Option {
	return func(cl *Client) { cl.observer = observer }
}

// NewClient constructs a Client from Config.
func NewClient(cfg Config, logger Logger, opts ...Option) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		// Remove trailing slash if user added it.
		baseURL:    strings.TrimRight(cfg.Endpoint, "/"),
		httpClient: &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutS) * time.Second},
		cfg:        cfg,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	logger.Info(fmt.Sprintf("inference client initialised for %s", c.baseURL), nil, map[string]interface{}{
		"embedding_model": cfg.EmbeddingModel,
		"rerank_model":    cfg.RerankModel,
	})
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
