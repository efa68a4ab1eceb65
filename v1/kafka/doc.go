// Package kafka publishes kernel invocation events to Apache Kafka.
//
// Sink implements events.Sink on top of the segmentio kafka-go Writer. Each
// event is written as JSON with the call id as message key, so every event
// of one function call lands on the same partition, and carries
// "event-type" and "event-id" headers for consumers that route without
// decoding the body.
//
// Basic usage:
//
//	sink, err := kafka.NewSink(kafka.Config{
//		Brokers: []string{"localhost:9092"},
//		Topic:   "kernel.invocations",
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
// In async mode Publish only queues the message; delivery failures are
// reported through the logger.
//
// TLS and SASL (PLAIN, SCRAM-SHA-256, SCRAM-SHA-512) are configured through
// Config.TLS and Config.SASL or the matching KAFKA_* environment variables
// read by NewConfig.
//
// FX integration:
//
//	app := fx.New(
//		logger.FXModule,
//		kafka.FXModule,
//		fx.Provide(kafka.NewConfig),
//	)
//
// The module provides *kafka.Sink and an events.Sink named "kafka", and
// closes the writer on shutdown.
package kafka
