package openai

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// FXModule provides the OpenAI client. The chat model joins the
// "chat_models" group consumed by ai.FXModule; embedding, image and audio
// generators join the kernel "services" group.
// Requires an openai.Config in the container.
var FXModule = fx.Module("openai",
	fx.Provide(
		NewClientWithParams,
		fx.Annotate(
			func(c *Client) ai.ChatModel { return c.ChatModel() },
			fx.ResultTags(`group:"chat_models"`),
		),
		fx.Annotate(
			func(c *Client) []kernel.Service {
				return []kernel.Service{c.EmbeddingGenerator(), c.ImageGenerator(), c.AudioGenerator()}
			},
			fx.ResultTags(`group:"services,flatten"`),
		),
	),
)

// Params are the fx dependencies of the client.
type Params struct {
	fx.In

	Config   Config
	Logger   logger.Logger
	Observer observability.Observer `optional:"true"`
}

// NewClientWithParams builds the client from fx params.
func NewClientWithParams(p Params) (*Client, error) {
	return NewClient(p.Config, p.Logger, WithObserver(p.Observer))
}
