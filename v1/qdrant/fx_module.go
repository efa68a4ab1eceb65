package qdrant

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

// FXModule provides the Qdrant client both as *Client and as a
// vectordb.Service named "qdrant", and closes it on shutdown.
//
// Requires a *qdrant.Config in the container.
//
//	app := fx.New(
//	    logger.FXModule,
//	    qdrant.FXModule,
//	    fx.Provide(qdrant.NewConfig),
//	)
var FXModule = fx.Module(
	"qdrant",
	fx.Provide(
		NewClientWithParams,
		fx.Annotate(
			func(c *Client) vectordb.Service { return c },
			fx.ResultTags(`name:"qdrant"`),
		),
	),
	fx.Invoke(RegisterQdrantLifecycle),
)

type Params struct {
	fx.In

	Config   *Config
	Logger   logger.Logger
	Observer observability.Observer `optional:"true"`
}

func NewClientWithParams(p Params) (*Client, error) {
	return NewQdrantClient(p.Config, p.Logger, WithObserver(p.Observer))
}

// RegisterQdrantLifecycle checks the connection on start and closes it on
// stop.
func RegisterQdrantLifecycle(lc fx.Lifecycle, client *Client) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.HealthCheck(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}
