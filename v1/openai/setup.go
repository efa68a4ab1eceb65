package openai

import (
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// Logger is the logging contract of this package.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=openai
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// Client holds the go-openai client shared by the chat, embedding, image
// and audio services of one account or Azure resource.
type Client struct {
	api      *goopenai.Client
	cfg      Config
	logger   Logger
	observer observability.Observer

	// component is the name reported to the observer and used in logs.
	component string
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	observer   observability.Observer
	component  string
}

// WithHTTPClient replaces the HTTP client, e.g. for proxies or tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

func WithObserver(observer observability.Observer) Option {
	return func(o *clientOptions) { o.observer = observer }
}

// WithComponent renames the component reported to the observer. Used by
// connectors for OpenAI-compatible providers.
func WithComponent(name string) Option {
	return func(o *clientOptions) { o.component = name }
}

// NewClient validates cfg and builds the go-openai client.
//
// Example:
//
//	client, err := openai.NewClient(*openai.NewConfig(), log)
//	chat := ai.NewFunctionCallingClient(client.ChatModel())
func NewClient(cfg Config, logger Logger, opts ...Option) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := clientOptions{component: "openai"}
	for _, opt := range opts {
		opt(&o)
	}

	var apiCfg goopenai.ClientConfig
	if cfg.IsAzure() {
		apiCfg = goopenai.DefaultAzureConfig(cfg.Azure.APIKey, cfg.Azure.Endpoint)
		apiCfg.APIVersion = cfg.Azure.APIVersion
		if deployment := cfg.Azure.DeploymentName; deployment != "" {
			apiCfg.AzureModelMapperFunc = func(string) string { return deployment }
			if cfg.ChatModelID == "" {
				cfg.ChatModelID = deployment
			}
		}
	} else {
		apiCfg = goopenai.DefaultConfig(cfg.APIKey)
		apiCfg.OrgID = cfg.OrgID
		if cfg.BaseURL != "" {
			apiCfg.BaseURL = cfg.BaseURL
		}
	}
	if o.httpClient != nil {
		apiCfg.HTTPClient = o.httpClient
	} else {
		apiCfg.HTTPClient = &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutS) * time.Second}
	}

	c := &Client{
		api:       goopenai.NewClientWithConfig(apiCfg),
		cfg:       cfg,
		logger:    logger,
		observer:  o.observer,
		component: o.component,
	}
	logger.Info(fmt.Sprintf("%s client initialised", o.component), nil, map[string]interface{}{
		"chat_model": cfg.ChatModelID,
		"azure":      cfg.IsAzure(),
	})
	return c, nil
}

// API exposes the underlying go-openai client for calls this package does
// not wrap.
func (c *Client) API() *goopenai.Client { return c.api }

func (c *Client) Config() Config { return c.cfg }
