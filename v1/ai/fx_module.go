package ai

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/kernel"
	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// FXModule wraps every ChatModel in the "chat_models" value group in a
// FunctionCallingClient and contributes it to the kernel "services" group.
//
//	fx.Provide(
//	    fx.Annotate(openai.NewChatModel, fx.As(new(ai.ChatModel)), fx.ResultTags(`group:"chat_models"`)),
//	)
var FXModule = fx.Module("ai",
	fx.Provide(
		fx.Annotate(
			NewChatServices,
			fx.ResultTags(`group:"services,flatten"`),
		),
	),
)

// Params are the fx dependencies of NewChatServices.
type Params struct {
	fx.In

	Config   Config `optional:"true"`
	Logger   logger.Logger
	Observer observability.Observer `optional:"true"`
	Hooks    ChatHooks              `optional:"true"`
	Models   []ChatModel            `group:"chat_models"`
}

// NewChatServices builds one FunctionCallingClient per chat model.
func NewChatServices(p Params) []kernel.Service {
	services := make([]kernel.Service, 0, len(p.Models))
	for _, model := range p.Models {
		services = append(services, NewFunctionCallingClient(model,
			WithConfig(p.Config),
			WithHooks(p.Hooks),
			WithLogger(p.Logger),
			WithObserver(p.Observer),
		))
	}
	return services
}
