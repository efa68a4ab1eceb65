package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/connectors/v1/events"
)

type published struct {
	routingKey string
	msg        amqp.Publishing
}

type fakePublisher struct {
	published []published
	err       error
	shutdown  bool
}

func (p *fakePublisher) Publish(_ context.Context, routingKey string, msg amqp.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, published{routingKey: routingKey, msg: msg})
	return nil
}

func (p *fakePublisher) GracefulShutdown() { p.shutdown = true }

func TestSinkPublish(t *testing.T) {
	pub := &fakePublisher{}
	sink := &Sink{client: pub, contentType: DefaultContentType}

	event := events.New(events.FunctionFailed)
	event.CallID = "call_7"
	event.Function = "divide"
	event.Error = "division by zero"
	require.NoError(t, sink.Publish(context.Background(), event))

	require.Len(t, pub.published, 1)
	got := pub.published[0]
	assert.Equal(t, "function.failed", got.routingKey)
	assert.Equal(t, DefaultContentType, got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, event.ID, got.msg.MessageId)
	assert.Equal(t, event.Time, got.msg.Timestamp)
	assert.Equal(t, "function.failed", got.msg.Type)
	assert.Equal(t, amqp.Table{"event-type": "function.failed", "call-id": "call_7"}, got.msg.Headers)

	var decoded events.Event
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, "division by zero", decoded.Error)
	assert.Equal(t, "call_7", decoded.CallID)
}

func TestSinkPublishFixedRoutingKey(t *testing.T) {
	pub := &fakePublisher{}
	sink := &Sink{client: pub, routingKey: "audit", contentType: DefaultContentType}

	event := events.New(events.LoopTerminated)
	require.NoError(t, sink.Publish(context.Background(), event))

	require.Len(t, pub.published, 1)
	assert.Equal(t, "audit", pub.published[0].routingKey)
	assert.Equal(t, amqp.Table{"event-type": "loop.terminated"}, pub.published[0].msg.Headers)
}

func TestSinkPublishErrorAndClose(t *testing.T) {
	pub := &fakePublisher{err: ErrMessageNacked}
	sink := &Sink{client: pub}

	err := sink.Publish(context.Background(), events.New(events.FunctionInvoked))
	assert.ErrorIs(t, err, ErrMessageNacked)

	require.NoError(t, sink.Close())
	assert.True(t, pub.shutdown)
}

func TestPublishAfterShutdown(t *testing.T) {
	testObserver := &recordingObserver{}
	client := &RabbitClient{
		cfg:            Config{Channel: Channel{ExchangeName: "kernel.events", ConfirmTimeout: time.Second}},
		shutdownSignal: make(chan struct{}),
		observer:       testObserver,
	}
	client.GracefulShutdown()

	err := client.Publish(context.Background(), "function.invoked", amqp.Publishing{Body: []byte("{}")})
	assert.ErrorIs(t, err, ErrShutdown)

	ops := testObserver.operations()
	require.Len(t, ops, 1)
	assert.Equal(t, "produce", ops[0].Operation)
	assert.Equal(t, "kernel.events", ops[0].Resource)
	assert.Equal(t, "function.invoked", ops[0].SubResource)
	assert.ErrorIs(t, ops[0].Error, ErrShutdown)
	assert.Equal(t, int64(2), ops[0].Size)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      error
		retryable bool
	}{
		{name: "access refused", err: &amqp.Error{Code: amqp.AccessRefused, Reason: "ACCESS_REFUSED"}, want: ErrAccessDenied},
		{name: "missing exchange", err: &amqp.Error{Code: amqp.NotFound, Reason: "NOT_FOUND - no exchange"}, want: ErrExchangeNotFound},
		{name: "forced close", err: &amqp.Error{Code: amqp.ConnectionForced}, want: ErrConnectionClosed, retryable: true},
		{name: "frame error", err: &amqp.Error{Code: amqp.FrameError}, want: ErrProtocolError},
		{name: "internal", err: &amqp.Error{Code: amqp.InternalError}, want: ErrServerError, retryable: true},
		{name: "closed", err: amqp.ErrClosed, want: ErrConnectionClosed, retryable: true},
		{name: "timeout", err: fmt.Errorf("dial: %w", timeoutError{}), want: ErrTimeout, retryable: true},
		{name: "refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), want: ErrConnectionFailed, retryable: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.Equal(t, tt.retryable, IsRetryableError(got))
		})
	}

	assert.NoError(t, TranslateError(nil))
	plain := errors.New("something else")
	assert.Same(t, plain, TranslateError(plain))
}

func TestConfig(t *testing.T) {
	t.Setenv("RABBITMQ_HOST", "rabbit.internal")
	t.Setenv("RABBITMQ_DECLARE_EXCHANGE", "true")
	t.Setenv("RABBITMQ_CONFIRM_TIMEOUT", "2s")

	cfg := NewConfig()
	assert.Equal(t, "rabbit.internal", cfg.Connection.Host)
	assert.Equal(t, uint(DefaultPort), cfg.Connection.Port)
	assert.Equal(t, DefaultExchangeName, cfg.Channel.ExchangeName)
	assert.Equal(t, DefaultExchangeType, cfg.Channel.ExchangeType)
	assert.True(t, cfg.Channel.DeclareExchange)
	assert.Equal(t, 2*time.Second, cfg.Channel.ConfirmTimeout)
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.Channel.ExchangeType = "x-delayed"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.Connection.UseCert = true
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	_, err := NewClient(Config{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
