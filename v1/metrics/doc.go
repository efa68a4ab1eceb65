// Package metrics exposes Prometheus metrics for the connectors.
//
// Metrics implements observability.Observer: hand it to the kernel, the
// chat connectors and the vector stores, and every operation they report
// ends up in three series:
//
//	<ns>_operations_total{component,operation,status}
//	<ns>_operation_duration_seconds{component,operation}
//	<ns>_operation_size_total{component,operation}
//
// Size is whatever the component reports: tokens for model calls, records
// for vector store writes, bytes for media uploads.
//
// # Direct Usage
//
//	m := metrics.NewMetrics(metrics.Config{
//		Address:     ":9090",
//		Namespace:   "connectors",
//		ServiceName: "kernelctl",
//	})
//	go m.Server.ListenAndServe()
//
//	k := kernel.New(kernel.WithObserver(m))
//
// # FX
//
//	app := fx.New(
//		logger.FXModule,
//		metrics.FXModule, // provides *Metrics, MetricsCollector, observability.Observer
//		fx.Supply(metrics.Config{Namespace: "connectors"}),
//	)
//
// # Configuration
//
//	METRICS_ADDRESS=:9090
//	METRICS_ENABLE_DEFAULT_COLLECTORS=true
//	METRICS_NAMESPACE=connectors
//	METRICS_SERVICE_NAME=kernelctl
package metrics
