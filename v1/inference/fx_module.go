package inference

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/kernel"
	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// FXModule wires the inference client into Fx.
//
// It provides:
//   - *Client                (NewClientWithParams)
//   - the embedding generator and reranker in the kernel "services" group
//   - Lifecycle hook         (RegisterInferenceLifecycle)
//
// Requires an inference.Config in the container.
var FXModule = fx.Module(
	"inference",

	fx.Provide(
		NewClientWithParams,
		fx.Annotate(
			func(c *Client) []kernel.Service {
				return []kernel.Service{c.EmbeddingGenerator(), c.Reranker()}
			},
			fx.ResultTags(`group:"services,flatten"`),
		),
	),

	fx.Invoke(RegisterInferenceLifecycle),
)

type Params struct {
	fx.In

	Config   Config
	Logger   logger.Logger
	Observer observability.Observer `optional:"true"`
}

func NewClientWithParams(p Params) (*Client, error) {
	return NewClient(p.Config, p.Logger, WithObserver(p.Observer))
}

// RegisterInferenceLifecycle releases idle connections on shutdown.
func RegisterInferenceLifecycle(lc fx.Lifecycle, client *Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}
