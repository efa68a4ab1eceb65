// Package tracer configures OpenTelemetry tracing.
//
// NewClient installs a global tracer provider (optionally exporting over
// OTLP/HTTP) and the W3C trace-context propagator. The kernel and the chat
// connectors create their spans through otel.Tracer, so tracing is on for
// them as soon as this package is initialised.
//
//	tr := tracer.NewClient(tracer.Config{
//		ServiceName:  "kernelctl",
//		AppEnv:       "production",
//		EnableExport: true,
//	}, log)
//	defer tr.Shutdown(ctx)
//
//	ctx, span := tr.StartSpan(ctx, "ingest")
//	defer span.End()
//
// GetCarrier and SetCarrierOnContext move a trace context across process
// boundaries; the kafka and rabbit event sinks put the carrier into message
// headers.
package tracer
