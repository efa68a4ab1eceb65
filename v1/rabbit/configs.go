package rabbit

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultPort         = 5672
	DefaultExchangeName = "kernel.events"
	DefaultExchangeType = "topic"
	DefaultContentType  = "application/json"

	// DefaultDelayToReconnect is the pause between reconnection attempts.
	DefaultDelayToReconnect = time.Second

	// DefaultConfirmTimeout bounds the wait for a publisher confirm when the
	// caller's context has no deadline.
	DefaultConfirmTimeout = 5 * time.Second
)

// Config defines the top-level configuration structure for the RabbitMQ client.
type Config struct {
	// Connection contains the settings needed to establish a connection to the RabbitMQ server
	Connection Connection `yaml:"connection"`

	// Channel contains the exchange and routing settings events are published with
	Channel Channel `yaml:"channel"`
}

// Connection contains the configuration parameters needed to establish
// a connection to a RabbitMQ server, including authentication and TLS settings.
type Connection struct {
	// Host is the RabbitMQ server hostname or IP address
	Host string `yaml:"host" envconfig:"RABBITMQ_HOST"`

	// Port is the RabbitMQ server port (typically 5672 for non-SSL, 5671 for SSL)
	Port uint `yaml:"port" envconfig:"RABBITMQ_PORT"`

	User     string `yaml:"user" envconfig:"RABBITMQ_USER"`
	Password string `yaml:"password" envconfig:"RABBITMQ_PASSWORD"`

	// VHost is the virtual host, "/" when empty
	VHost string `yaml:"vhost" envconfig:"RABBITMQ_VHOST"`

	// IsSSLEnabled determines whether to use SSL/TLS for the connection
	// When true, connections will use the AMQPs protocol
	IsSSLEnabled bool `yaml:"is_ssl_enabled" envconfig:"RABBITMQ_SSL_ENABLED"`

	// UseCert determines whether to use client certificate authentication
	// When true, client certificates will be sent for mutual TLS authentication
	UseCert bool `yaml:"use_cert" envconfig:"RABBITMQ_USE_CERT"`

	CACertPath     string `yaml:"ca_cert_path" envconfig:"RABBITMQ_CA_CERT"`
	ClientCertPath string `yaml:"client_cert_path" envconfig:"RABBITMQ_CLIENT_CERT"`
	ClientKeyPath  string `yaml:"client_key_path" envconfig:"RABBITMQ_CLIENT_KEY"`

	// ServerName is the server name to use for TLS verification
	// This should match a CN or SAN in the server's certificate
	ServerName string `yaml:"server_name" envconfig:"RABBITMQ_SERVER_NAME"`
}

// Channel contains the exchange events are published to.
type Channel struct {
	// ExchangeName is the name of the exchange to publish to
	// Default: "kernel.events"
	ExchangeName string `yaml:"exchange_name" envconfig:"RABBITMQ_EXCHANGE"`

	// ExchangeType defines the routing behavior of the exchange
	// Common values: "direct", "fanout", "topic", "headers"
	// Default: "topic"
	ExchangeType string `yaml:"exchange_type" envconfig:"RABBITMQ_EXCHANGE_TYPE"`

	// DeclareExchange declares a durable exchange on connect. Leave it off
	// when the exchange is managed elsewhere.
	DeclareExchange bool `yaml:"declare_exchange" envconfig:"RABBITMQ_DECLARE_EXCHANGE"`

	// RoutingKey is used for every event. When empty the event type
	// ("function.invoked", ...) is the routing key, which suits topic exchanges.
	RoutingKey string `yaml:"routing_key" envconfig:"RABBITMQ_ROUTING_KEY"`

	// DelayToReconnect is the time to wait between reconnection attempts
	DelayToReconnect time.Duration `yaml:"delay_to_reconnect" envconfig:"RABBITMQ_DELAY_TO_RECONNECT"`

	// ConfirmTimeout bounds the wait for the broker's publisher confirm
	ConfirmTimeout time.Duration `yaml:"confirm_timeout" envconfig:"RABBITMQ_CONFIRM_TIMEOUT"`

	// ContentType specifies the MIME type of published messages
	ContentType string `yaml:"content_type" envconfig:"RABBITMQ_CONTENT_TYPE"`
}

// Logger is an interface that matches the connectors logger.Logger interface.
// It provides context-aware structured logging with optional error and field parameters.
type Logger interface {
	// InfoWithContext logs an informational message with trace context.
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// WarnWithContext logs a warning message with trace context.
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// ErrorWithContext logs an error message with trace context.
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// NewConfig reads the configuration from RABBITMQ_* environment variables.
func NewConfig() Config {
	cfg := Config{
		Connection: Connection{
			Host:           os.Getenv("RABBITMQ_HOST"),
			User:           os.Getenv("RABBITMQ_USER"),
			Password:       os.Getenv("RABBITMQ_PASSWORD"),
			VHost:          os.Getenv("RABBITMQ_VHOST"),
			CACertPath:     os.Getenv("RABBITMQ_CA_CERT"),
			ClientCertPath: os.Getenv("RABBITMQ_CLIENT_CERT"),
			ClientKeyPath:  os.Getenv("RABBITMQ_CLIENT_KEY"),
			ServerName:     os.Getenv("RABBITMQ_SERVER_NAME"),
		},
		Channel: Channel{
			ExchangeName: os.Getenv("RABBITMQ_EXCHANGE"),
			ExchangeType: os.Getenv("RABBITMQ_EXCHANGE_TYPE"),
			RoutingKey:   os.Getenv("RABBITMQ_ROUTING_KEY"),
			ContentType:  os.Getenv("RABBITMQ_CONTENT_TYPE"),
		},
	}
	if v, err := strconv.ParseUint(os.Getenv("RABBITMQ_PORT"), 10, 16); err == nil {
		cfg.Connection.Port = uint(v)
	}
	if v, err := strconv.ParseBool(os.Getenv("RABBITMQ_SSL_ENABLED")); err == nil {
		cfg.Connection.IsSSLEnabled = v
	}
	if v, err := strconv.ParseBool(os.Getenv("RABBITMQ_USE_CERT")); err == nil {
		cfg.Connection.UseCert = v
	}
	if v, err := strconv.ParseBool(os.Getenv("RABBITMQ_DECLARE_EXCHANGE")); err == nil {
		cfg.Channel.DeclareExchange = v
	}
	if v, err := time.ParseDuration(os.Getenv("RABBITMQ_DELAY_TO_RECONNECT")); err == nil {
		cfg.Channel.DelayToReconnect = v
	}
	if v, err := time.ParseDuration(os.Getenv("RABBITMQ_CONFIRM_TIMEOUT")); err == nil {
		cfg.Channel.ConfirmTimeout = v
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Connection.Port == 0 {
		c.Connection.Port = DefaultPort
	}
	if c.Channel.ExchangeName == "" {
		c.Channel.ExchangeName = DefaultExchangeName
	}
	if c.Channel.ExchangeType == "" {
		c.Channel.ExchangeType = DefaultExchangeType
	}
	if c.Channel.ContentType == "" {
		c.Channel.ContentType = DefaultContentType
	}
	if c.Channel.DelayToReconnect == 0 {
		c.Channel.DelayToReconnect = DefaultDelayToReconnect
	}
	if c.Channel.ConfirmTimeout == 0 {
		c.Channel.ConfirmTimeout = DefaultConfirmTimeout
	}
}

// Validate checks the configuration after defaults have been applied.
func (c Config) Validate() error {
	if c.Connection.Host == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidConfig)
	}
	if c.Connection.UseCert && (!c.Connection.IsSSLEnabled || c.Connection.ClientCertPath == "" || c.Connection.ClientKeyPath == "") {
		return fmt.Errorf("%w: client certificates require SSL and both cert and key paths", ErrInvalidConfig)
	}
	switch c.Channel.ExchangeType {
	case "direct", "fanout", "topic", "headers":
	default:
		return fmt.Errorf("%w: unknown exchange type %q", ErrInvalidConfig, c.Channel.ExchangeType)
	}
	return nil
}
