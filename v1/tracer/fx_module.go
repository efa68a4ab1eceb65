package tracer

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/logger"
)

// FXModule provides *Tracer and flushes it on shutdown.
// Requires a tracer.Config and a logger.Logger in the container.
var FXModule = fx.Module("tracer",
	fx.Provide(
		func(cfg Config, log logger.Logger) *Tracer { return NewClient(cfg, log) },
	),
	fx.Invoke(RegisterTracerLifecycle),
)

// RegisterTracerLifecycle shuts the provider down on app stop so pending
// spans reach the exporter.
func RegisterTracerLifecycle(lc fx.Lifecycle, tracer *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if tracer == nil || tracer.provider == nil {
				return nil
			}
			tracer.logger.Info("shutting down tracer", nil, nil)
			return tracer.Shutdown(ctx)
		},
	})
}
