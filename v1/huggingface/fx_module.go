package huggingface

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/kernel"
	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// FXModule provides the HuggingFace client. Text generation and embeddings
// join the kernel "services" group; the prompt-style chat model is not
// registered as a chat model.
var FXModule = fx.Module("huggingface",
	fx.Provide(
		func(cfg Config, log logger.Logger, p struct {
			fx.In
			Observer observability.Observer `optional:"true"`
		}) (*Client, error) {
			return NewClient(cfg, log, WithObserver(p.Observer))
		},
		fx.Annotate(
			func(c *Client) []kernel.Service {
				return []kernel.Service{c.TextGeneration(), c.EmbeddingGenerator()}
			},
			fx.ResultTags(`group:"services,flatten"`),
		),
	),
)
