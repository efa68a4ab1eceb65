package ollama

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// FXModule provides the Ollama client, its chat model in the "chat_models"
// group and its embedding generator in the "services" group.
// Requires an ollama.Config in the container.
var FXModule = fx.Module("ollama",
	fx.Provide(
		NewClientWithParams,
		fx.Annotate(
			func(c *Client) ai.ChatModel { return c.ChatModel() },
			fx.ResultTags(`group:"chat_models"`),
		),
		fx.Annotate(
			func(c *Client) kernel.Service { return c.EmbeddingGenerator() },
			fx.ResultTags(`group:"services"`),
		),
	),
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
