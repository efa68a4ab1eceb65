package rabbit

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/events"
	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// FXModule is an fx.Module that provides the RabbitMQ client and the event
// sink, the latter also as an events.Sink named "rabbit".
//
// Usage:
//
//	app := fx.New(
//	    rabbit.FXModule,
//	    // other modules...
//	)
var FXModule = fx.Module("rabbit",
	fx.Provide(
		NewClientWithDI,
		NewSinkFromClient,
		fx.Annotate(
			func(s *Sink) events.Sink { return s },
			fx.ResultTags(`name:"rabbit"`),
		),
	),
	fx.Invoke(RegisterRabbitLifecycle),
)

// RabbitParams groups the dependencies needed to create a Rabbit client
type RabbitParams struct {
	fx.In

	Config   Config
	Logger   logger.Logger          `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewClientWithDI creates a new RabbitMQ client using dependency injection.
// The logger and observer are optional.
func NewClientWithDI(params RabbitParams) (*RabbitClient, error) {
	var log Logger
	if params.Logger != nil {
		log = params.Logger
	}
	client, err := NewClient(params.Config, log)
	if err != nil {
		return nil, err
	}
	return client.WithObserver(params.Observer), nil
}

// RabbitLifecycleParams groups the dependencies needed for RabbitMQ lifecycle management
type RabbitLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Client    *RabbitClient
}

// RegisterRabbitLifecycle runs RetryConnection while the application is up
// and shuts the client down on stop.
func RegisterRabbitLifecycle(params RabbitLifecycleParams) {
	wg := &sync.WaitGroup{}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				params.Client.RetryConnection()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			params.Client.GracefulShutdown()
			wg.Wait()
			return nil
		},
	})
}
