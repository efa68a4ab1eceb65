package kafka

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/events"
	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// FXModule provides the Kafka sink, also as an events.Sink named "kafka".
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    kafka.FXModule,
//	    fx.Provide(kafka.NewConfig),
//	)
var FXModule = fx.Module("kafka",
	fx.Provide(
		NewSinkWithDI,
		fx.Annotate(
			func(s *Sink) events.Sink { return s },
			fx.ResultTags(`name:"kafka"`),
		),
	),
	fx.Invoke(RegisterKafkaLifecycle),
)

// KafkaParams groups the dependencies needed to create the sink.
type KafkaParams struct {
	fx.In

	Config   Config
	Logger   logger.Logger          `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewSinkWithDI creates the sink using dependency injection.
func NewSinkWithDI(params KafkaParams) (*Sink, error) {
	var log Logger
	if params.Logger != nil {
		log = params.Logger
	}
	sink, err := NewSink(params.Config, log)
	if err != nil {
		return nil, err
	}
	return sink.WithObserver(params.Observer), nil
}

// RegisterKafkaLifecycle flushes and closes the sink when the application stops.
func RegisterKafkaLifecycle(lc fx.Lifecycle, sink *Sink) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return sink.Close()
		},
	})
}
