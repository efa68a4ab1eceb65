package redis

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// FXModule provides the Redis client and the chat history store, the latter
// also as a contents.ChatHistoryStore named "redis".
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    redis.FXModule,
//	    fx.Provide(redis.NewConfig),
//	)
var FXModule = fx.Module("redis",
	fx.Provide(
		NewClientWithDI,
		NewChatHistoryStore,
		fx.Annotate(
			func(s *ChatHistoryStore) contents.ChatHistoryStore { return s },
			fx.ResultTags(`name:"redis"`),
		),
	),
	fx.Invoke(RegisterRedisLifecycle),
)

// RedisParams groups the dependencies needed to create a Redis client
type RedisParams struct {
	fx.In

	Config   Config
	Logger   logger.Logger          `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewClientWithDI creates a new Redis client using dependency injection.
func NewClientWithDI(params RedisParams) (*RedisClient, error) {
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

// RedisLifecycleParams groups the dependencies needed for Redis lifecycle management
type RedisLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Client    *RedisClient
}

// RegisterRedisLifecycle pings Redis on start and closes the client on
// stop.
func RegisterRedisLifecycle(params RedisLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return params.Client.Ping(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return params.Client.Close()
		},
	})
}
