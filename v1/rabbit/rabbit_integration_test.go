//go:build integration

package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Aleph-Alpha/connectors/v1/events"
	"github.com/Aleph-Alpha/connectors/v1/logger"
)

func createRabbitContainer(ctx context.Context) (testcontainers.Container, string, uint, error) {
	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5672/tcp").WithStartupTimeout(60*time.Second),
			wait.ForLog("Server startup complete").WithStartupTimeout(60*time.Second),
		),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to start RabbitMQ container: %w", err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, "", 0, err
	}
	port, err := c.MappedPort(ctx, nat.Port("5672/tcp"))
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, "", 0, err
	}
	return c, host, uint(port.Int()), nil
}

func TestRabbitSinkWithFXModule(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	c, host, port, err := createRabbitContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	cfg := Config{
		Connection: Connection{Host: host, Port: port, User: "guest", Password: "guest"},
		Channel:    Channel{ExchangeName: "kernel.events", DeclareExchange: true},
	}

	var sinks struct {
		fx.In
		Sink events.Sink `name:"rabbit"`
	}
	app := fxtest.New(t,
		fx.Provide(
			func() Config { return cfg },
			func() logger.Logger { return logger.NewFromZap(zap.NewNop(), false) },
		),
		FXModule,
		fx.Populate(&sinks),
	)
	app.RequireStart()
	defer app.RequireStop()

	// Bind a queue for failures only.
	conn, err := amqp.Dial(fmt.Sprintf("amqp://guest:guest@%s:%d/", host, port))
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "function.failed", "kernel.events", false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	ok := events.New(events.FunctionInvoked)
	ok.CallID = "call_ok"
	failed := events.New(events.FunctionFailed)
	failed.CallID = "call_failed"
	failed.Error = "boom"

	require.NoError(t, sinks.Sink.Publish(ctx, ok))
	require.NoError(t, sinks.Sink.Publish(ctx, failed))

	select {
	case d := <-deliveries:
		assert.Equal(t, "function.failed", d.RoutingKey)
		assert.Equal(t, failed.ID, d.MessageId)
		assert.Equal(t, "call_failed", d.Headers["call-id"])
		var got events.Event
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, "boom", got.Error)
	case <-time.After(10 * time.Second):
		t.Fatal("no delivery for the failed event")
	}

	select {
	case d := <-deliveries:
		t.Fatalf("unexpected delivery with routing key %q", d.RoutingKey)
	case <-time.After(500 * time.Millisecond):
	}
}
