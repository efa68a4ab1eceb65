package rabbit

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Aleph-Alpha/connectors/v1/events"
	"github.com/Aleph-Alpha/connectors/v1/tracer"
)

// publisher is the part of *RabbitClient the sink uses.
type publisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
	GracefulShutdown()
}

// Sink publishes invocation events as persistent JSON messages to an
// exchange. It implements events.Sink.
type Sink struct {
	client      publisher
	routingKey  string
	contentType string
}

var _ events.Sink = (*Sink)(nil)

// NewSink connects to RabbitMQ and returns a sink publishing to
// cfg.Channel.ExchangeName.
func NewSink(cfg Config, logger Logger) (*Sink, error) {
	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewSinkFromClient(client), nil
}

// NewSinkFromClient wraps an existing client, e.g. one shared with other
// publishers.
func NewSinkFromClient(client *RabbitClient) *Sink {
	cfg := client.Config()
	return &Sink{
		client:      client,
		routingKey:  cfg.Channel.RoutingKey,
		contentType: cfg.Channel.ContentType,
	}
}

// Publish sends event and waits for the broker's confirm. The routing key
// is the configured one or, when none is set, the event type.
func (s *Sink) Publish(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	headers := amqp.Table{"event-type": string(event.Type)}
	if event.CallID != "" {
		headers["call-id"] = event.CallID
	}
	for k, v := range tracer.Carrier(ctx) {
		headers[k] = v
	}

	routingKey := s.routingKey
	if routingKey == "" {
		routingKey = string(event.Type)
	}

	return s.client.Publish(ctx, routingKey, amqp.Publishing{
		Headers:      headers,
		ContentType:  s.contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.Time,
		Type:         string(event.Type),
		Body:         body,
	})
}

// Close shuts the underlying client down.
func (s *Sink) Close() error {
	s.client.GracefulShutdown()
	return nil
}
