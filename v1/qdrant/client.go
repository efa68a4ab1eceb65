package qdrant

import (
	"context"
	"fmt"
	"time"

	qdrant "github.com/qdrant/go-client/qdrant"

	"github.com/Aleph-Alpha/connectors/v1/observability"
	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

//go:generate mockgen -source=client.go -destination=mock_logger.go -package=qdrant

// Logger is the logging surface the Qdrant client needs.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

var _ vectordb.Service = (*Client)(nil)

// Client is a vectordb.Service backed by Qdrant's gRPC API.
//
// Collections are created with cosine distance. Point ids are strings on
// the vectordb side; UUIDs and unsigned integers map to native Qdrant ids,
// anything else is hashed into a UUID and the original id is kept in the
// payload under OriginalIDField.
type Client struct {
	api      *qdrant.Client
	cfg      *Config
	logger   Logger
	observer observability.Observer
	started  bool
}

const (
	defaultBatchSize      = 200 // default chunk size for batch inserts
	maxConcurrentSearches = 10  // default maximum concurrent searches
)

type Option func(*Client)

func WithObserver(o observability.Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewQdrantClient connects to Qdrant and validates connectivity via a health
// check, failing fast if the service is unreachable.
//
// Example:
//
//	client, err := qdrant.NewQdrantClient(qdrant.NewConfig(), log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func NewQdrantClient(cfg *Config, logger Logger, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	logger.Info("connecting to qdrant", nil, map[string]interface{}{
		"endpoint": cfg.Endpoint,
		"port":     cfg.Port,
	})

	api, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Endpoint,
		Port:                   cfg.Port,
		APIKey:                 cfg.ApiKey,
		UseTLS:                 cfg.UseTLS,
		SkipCompatibilityCheck: !cfg.CheckCompatibility,
	})
	if err != nil {
		return nil, fmt.Errorf("[Qdrant] failed to initialize client: %w", err)
	}

	c := &Client{api: api, cfg: cfg, logger: logger, started: true}
	for _, opt := range opts {
		opt(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.healthCheck(ctx); err != nil {
		_ = api.Close()
		return nil, err
	}
	return c, nil
}

// healthCheck calls the server's health endpoint. It is cheap enough for
// readiness probes.
func (c *Client) healthCheck(ctx context.Context) error {
	if !c.started || c.api == nil {
		return ErrNotInitialized
	}
	resp, err := c.api.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("[Qdrant] health check failed: %w", err)
	}
	c.logger.Info("qdrant health check passed", nil, map[string]interface{}{
		"title":    resp.GetTitle(),
		"version":  resp.GetVersion(),
		"endpoint": c.cfg.Endpoint,
	})
	return nil
}

// HealthCheck reports whether the server answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.healthCheck(ctx)
}

// Client returns the underlying Qdrant SDK client for operations this
// package does not cover.
func (c *Client) Client() *qdrant.Client {
	return c.api
}

// Config returns the effective configuration.
func (c *Client) Config() *Config {
	return c.cfg
}

// Close releases the gRPC connections.
func (c *Client) Close() error {
	if !c.started {
		return nil
	}
	c.started = false
	c.logger.Info("closing qdrant client", nil)
	return c.api.Close()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}
