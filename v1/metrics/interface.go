package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// MetricsCollector is what consumers depend on. It is an
// observability.Observer, so it can be passed straight to the kernel
// and to every connector.
type MetricsCollector interface {
	observability.Observer

	// CreateCounter registers an additional counter on the service registry.
	CreateCounter(name, help string, labels []string) *prometheus.CounterVec

	CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec

	CreateGauge(name, help string, labels []string) *prometheus.GaugeVec
}

var _ MetricsCollector = (*Metrics)(nil)
