package rabbit

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// heartbeat detects dead connections quickly
const heartbeat = 2 * time.Second

// RabbitClient manages the connection and the publishing channel to RabbitMQ
// and re-establishes both when the broker goes away.
type RabbitClient struct {
	// cfg stores the configuration for this RabbitMQ client
	cfg Config

	// channel is the AMQP channel in publisher-confirm mode
	channel *amqp.Channel

	// conn is the underlying AMQP connection to the RabbitMQ server
	conn *amqp.Connection

	logger Logger

	// observer provides optional observability hooks for tracking operations
	observer observability.Observer

	// mu protects concurrent access to connection and channel
	mu sync.RWMutex

	// shutdownSignal is closed when the client is being shut down
	shutdownSignal chan struct{}

	closeShutdownOnce sync.Once
}

// NewClient connects to RabbitMQ, opens a channel in publisher-confirm mode
// and declares the exchange when Channel.DeclareExchange is set.
//
// Example:
//
//	client, err := rabbit.NewClient(config, log)
//	if err != nil {
//		return err
//	}
//	defer client.GracefulShutdown()
func NewClient(cfg Config, logger Logger) (*RabbitClient, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rb := &RabbitClient{
		cfg:            cfg,
		logger:         logger,
		shutdownSignal: make(chan struct{}),
	}

	conn, err := newConnection(cfg)
	if err != nil {
		rb.logError(context.Background(), "error in connecting to rabbit", err, nil)
		return nil, err
	}

	ch, err := connectToChannel(conn, cfg)
	if err != nil {
		rb.logError(context.Background(), "error in declaring channel", err, nil)
		_ = conn.Close()
		return nil, err
	}

	rb.conn = conn
	rb.channel = ch
	rb.logInfo(context.Background(), "connected to rabbit", map[string]interface{}{
		"host":     cfg.Connection.Host,
		"exchange": cfg.Channel.ExchangeName,
	})
	return rb, nil
}

// connectToChannel creates a channel with publisher confirms enabled and,
// if configured, declares the durable exchange events are published to.
func connectToChannel(conn *amqp.Connection, cfg Config) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", TranslateError(err))
	}

	if err = ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", TranslateError(err))
	}

	if !cfg.Channel.DeclareExchange {
		return ch, nil
	}

	err = ch.ExchangeDeclare(
		cfg.Channel.ExchangeName,
		cfg.Channel.ExchangeType,
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", TranslateError(err))
	}
	return ch, nil
}

// RetryConnection watches the connection and re-establishes it and the
// channel whenever it closes. It blocks until GracefulShutdown and is meant
// to run in its own goroutine.
func (rb *RabbitClient) RetryConnection() {
	ctx := context.Background()
outerLoop:
	for {
		rb.mu.RLock()
		conn := rb.conn
		rb.mu.RUnlock()

		errChan := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-rb.shutdownSignal:
			rb.logInfo(ctx, "stopping RetryConnection loop due to shutdown signal", nil)
			return

		case amqpErr := <-errChan:
			var cause error
			if amqpErr != nil {
				cause = amqpErr
			}
			rb.logWarn(ctx, "rabbit connection closed, retrying", cause, nil)
		}

		for {
			select {
			case <-rb.shutdownSignal:
				rb.logInfo(ctx, "stopping RetryConnection loop due to shutdown signal", nil)
				return
			case <-time.After(rb.cfg.Channel.DelayToReconnect):
			}

			newConn, err := newConnection(rb.cfg)
			if err != nil {
				rb.logError(ctx, "rabbit reconnection failed", err, nil)
				continue
			}
			ch, err := connectToChannel(newConn, rb.cfg)
			if err != nil {
				rb.logError(ctx, "failed to re-establish rabbit channel", err, nil)
				_ = newConn.Close()
				continue
			}

			rb.mu.Lock()
			rb.conn = newConn
			rb.channel = ch
			rb.mu.Unlock()

			rb.logInfo(ctx, "successfully reconnected to rabbit", nil)
			continue outerLoop
		}
	}
}

// GracefulShutdown stops RetryConnection and closes the channel and the
// connection. Publish returns ErrShutdown afterwards.
func (rb *RabbitClient) GracefulShutdown() {
	rb.closeShutdownOnce.Do(func() {
		close(rb.shutdownSignal)
	})

	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.logInfo(context.Background(), "shutting down rabbit client", nil)

	if rb.channel != nil && !rb.channel.IsClosed() {
		if err := rb.channel.Close(); err != nil {
			rb.logWarn(context.Background(), "failed to close rabbit channel", err, nil)
		}
	}
	if rb.conn != nil && !rb.conn.IsClosed() {
		if err := rb.conn.Close(); err != nil {
			rb.logWarn(context.Background(), "failed to close rabbit connection", err, nil)
		}
	}
}

// WithObserver attaches an observer that is notified of every publish.
func (rb *RabbitClient) WithObserver(observer observability.Observer) *RabbitClient {
	rb.observer = observer
	return rb
}

// WithLogger sets the logger and returns the client for chaining.
func (rb *RabbitClient) WithLogger(logger Logger) *RabbitClient {
	rb.logger = logger
	return rb
}

// Config returns the effective configuration, defaults included.
func (rb *RabbitClient) Config() Config {
	return rb.cfg
}

// newConnection dials RabbitMQ. Three modes are supported: TLS with client
// certificates, TLS with server authentication only, and plain AMQP.
func newConnection(cfg Config) (*amqp.Connection, error) {
	uri := amqp.URI{
		Scheme:   "amqp",
		Host:     cfg.Connection.Host,
		Port:     int(cfg.Connection.Port),
		Username: cfg.Connection.User,
		Password: cfg.Connection.Password,
		Vhost:    cfg.Connection.VHost,
	}
	if uri.Vhost == "" {
		uri.Vhost = "/"
	}

	amqpCfg := amqp.Config{Heartbeat: heartbeat, Vhost: uri.Vhost}
	if cfg.Connection.IsSSLEnabled {
		uri.Scheme = "amqps"
		tlsConfig, err := createTLSConfig(cfg.Connection)
		if err != nil {
			return nil, err
		}
		amqpCfg.TLSClientConfig = tlsConfig
	}

	conn, err := amqp.DialConfig(uri.String(), amqpCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return conn, nil
}

// createTLSConfig creates a TLS configuration from the connection settings
func createTLSConfig(cfg Connection) (*tls.Config, error) {
	tlsConfig := &tls.Config{ServerName: cfg.ServerName}

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

	if cfg.UseCert {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}
