package redis

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=redis

// Logger is an interface that matches the connectors logger.Logger.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// RedisClient wraps the go-redis client with connection management and
// operation observation.
type RedisClient struct {
	// client is the underlying Redis client
	client redis.UniversalClient

	cfg Config

	// logger is used for structured logging
	logger Logger

	// observer provides optional observability hooks for tracking operations
	observer observability.Observer

	// mu protects concurrent access to client
	mu sync.RWMutex

	closed    bool
	closeOnce sync.Once
}

// NewClient creates a client for a standalone Redis instance. It does not
// contact the server; use Ping for that.
//
// Example:
//
//	client, err := redis.NewClient(redis.Config{Host: "localhost", Port: 6379}, log)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
func NewClient(cfg Config, logger Logger) (*RedisClient, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var tlsConfig *tls.Config
	if cfg.TLS.Enabled {
		var err error
		tlsConfig, err = createTLSConfig(cfg.TLS, cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr(),
		Username:        cfg.Username,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		ConnMaxIdleTime: DefaultIdleTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: DefaultMinRetryBackoff,
		MaxRetryBackoff: DefaultMaxRetryBackoff,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		TLSConfig:       tlsConfig,
	})

	if logger != nil {
		logger.Info("redis client initialized", nil, map[string]interface{}{
			"addr": cfg.Addr(),
			"db":   cfg.DB,
		})
	}
	return &RedisClient{client: client, cfg: cfg, logger: logger}, nil
}

// createTLSConfig creates a TLS configuration from the provided config
func createTLSConfig(cfg TLSConfig, defaultServerName string) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		ServerName:         defaultServerName,
	}
	if cfg.ServerName != "" {
		tlsConfig.ServerName = cfg.ServerName
	}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA cert")
		}
		tlsConfig.RootCAs = caCertPool
	}

	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Client returns the underlying go-redis client for advanced operations.
func (r *RedisClient) Client() redis.UniversalClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client
}

func (r *RedisClient) Config() Config {
	return r.cfg
}

// Ping checks connectivity to the server.
func (r *RedisClient) Ping(ctx context.Context) error {
	done := r.track("ping", "", "")
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	err := r.Client().Ping(ctx).Err()
	done(err, 0)
	return err
}

// Close closes the Redis client and releases all resources.
func (r *RedisClient) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.closed = true
		if r.client != nil {
			err = r.client.Close()
		}
		if r.logger != nil {
			if err != nil {
				r.logger.Warn("failed to close redis client", err)
			} else {
				r.logger.Info("redis client closed", nil)
			}
		}
	})
	return err
}

// WithObserver sets the observer for this client and returns the client for method chaining.
// The observer receives events about chat history operations.
//
// Example:
//
//	client := client.WithObserver(myObserver).WithLogger(myLogger)
func (r *RedisClient) WithObserver(observer observability.Observer) *RedisClient {
	r.observer = observer
	return r
}

// WithLogger sets the logger for this client and returns the client for method chaining.
func (r *RedisClient) WithLogger(logger Logger) *RedisClient {
	r.logger = logger
	return r
}
