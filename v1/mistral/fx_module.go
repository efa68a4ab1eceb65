package mistral

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// FXModule provides the Mistral client, its chat model in the
// "chat_models" group and its embedding generator in the "services" group.
var FXModule = fx.Module("mistral",
	fx.Provide(
		func(cfg Config, log logger.Logger, p struct {
			fx.In
			Observer observability.Observer `optional:"true"`
		}) (*Client, error) {
			return NewClient(cfg, log, p.Observer)
		},
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
