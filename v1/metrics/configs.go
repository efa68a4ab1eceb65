package metrics

const DefaultMetricsAddress = ":9090"

// Config configures the Prometheus registry and its HTTP endpoint.
type Config struct {
	// Address the /metrics server listens on. Defaults to :9090.
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS"`

	EnableDefaultCollectors bool `yaml:"enable_default_collectors" envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS"`

	// Namespace prefixes every metric name, e.g. "connectors".
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE"`

	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME"`
}
