// Package rabbit publishes kernel invocation events to RabbitMQ.
//
// RabbitClient owns the AMQP connection and a channel in publisher-confirm
// mode. RetryConnection re-dials after the broker closes the connection, so
// a long running process survives broker restarts. Sink implements
// events.Sink on top of it: every event becomes a persistent JSON message
// whose routing key is the event type ("function.invoked",
// "function.failed", "loop.terminated") unless Channel.RoutingKey fixes one.
// Publish returns only after the broker confirmed the message.
//
// # Direct usage
//
//	sink, err := rabbit.NewSink(rabbit.Config{
//		Connection: rabbit.Connection{
//			Host:     "localhost",
//			User:     "guest",
//			Password: "guest",
//		},
//		Channel: rabbit.Channel{
//			ExchangeName:    "kernel.events",
//			DeclareExchange: true,
//		},
//	}, log)
//	if err != nil {
//		return err
//	}
//	defer sink.Close()
//
//	k, err := kernel.New(
//		kernel.WithAutoFunctionInvocationFilter(events.NewAuditFilter(sink, log)),
//	)
//
// Consumers bind a queue with a pattern such as "function.*" to receive
// only call outcomes.
//
// # Trace propagation
//
// The trace context of the publishing call is injected into the message
// headers using the propagator installed by the tracer package, next to the
// "event-type" and "call-id" headers.
//
// # FX integration
//
//	app := fx.New(
//		logger.FXModule,
//		rabbit.FXModule,
//		fx.Provide(rabbit.NewConfig),
//	)
//
// The module provides *RabbitClient, *Sink and an events.Sink named
// "rabbit", keeps the connection alive in the background and closes it on
// shutdown.
//
// # Errors
//
// TranslateError maps AMQP reply codes and network failures onto the
// package's error values; IsRetryableError tells whether a later publish
// may succeed.
package rabbit
