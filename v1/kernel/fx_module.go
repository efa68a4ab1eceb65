package kernel

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// FXModule provides a *Kernel built from the plugins and services other
// modules contribute to the "plugins" and "services" value groups.
//
//	fx.Provide(
//	    fx.Annotate(newMathPlugin, fx.ResultTags(`group:"plugins"`)),
//	    fx.Annotate(newChatService, fx.As(new(kernel.Service)), fx.ResultTags(`group:"services"`)),
//	)
var FXModule = fx.Module("kernel",
	fx.Provide(NewKernelWithParams),
)

// Params are the fx dependencies of the kernel.
type Params struct {
	fx.In

	Logger   logger.Logger
	Observer observability.Observer `optional:"true"`
	Plugins  []*Plugin              `group:"plugins"`
	Services []Service              `group:"services"`
}

// NewKernelWithParams builds the kernel from fx params.
func NewKernelWithParams(p Params) (*Kernel, error) {
	k, err := New(
		WithLogger(p.Logger),
		WithObserver(p.Observer),
		WithPlugins(p.Plugins...),
		WithServices(p.Services...),
	)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("kernel initialised", nil, map[string]interface{}{
		"plugins":  len(p.Plugins),
		"services": len(p.Services),
	})
	return k, nil
}
