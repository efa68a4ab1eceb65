// Package events records what the auto-invoke loop did.
//
// NewAuditFilter is a kernel auto-function-invocation filter. After every
// model requested function call it publishes an Event to a Sink:
// function.invoked, function.failed (the function returned an error or a
// later filter failed) or loop.terminated (a filter set Terminate).
//
//	sink, err := kafka.NewSink(kafkaCfg, log)
//	k, err := kernel.New(
//	    kernel.WithPlugins(plugins...),
//	    kernel.WithAutoFunctionInvocationFilter(events.NewAuditFilter(sink, log)),
//	)
//
// Sinks for Kafka and RabbitMQ live in the kafka and rabbit packages.
// Publishing is best effort: failures are logged and the call proceeds.
package events
