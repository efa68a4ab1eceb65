package tracer

// Config configures the OpenTelemetry tracer provider.
type Config struct {
	ServiceName string `yaml:"service_name" envconfig:"TRACER_SERVICE_NAME"`

	// AppEnv is reported as deployment.environment.
	AppEnv string `yaml:"app_env" envconfig:"APP_ENV"`

	// EnableExport turns on the OTLP/HTTP exporter. The exporter reads the
	// standard OTEL_EXPORTER_OTLP_* variables; Endpoint overrides the host.
	EnableExport bool   `yaml:"enable_export" envconfig:"TRACER_ENABLE_EXPORT"`
	Endpoint     string `yaml:"endpoint" envconfig:"TRACER_ENDPOINT"`
	Insecure     bool   `yaml:"insecure" envconfig:"TRACER_INSECURE"`

	// SampleRatio in [0,1]. Zero means always sample.
	SampleRatio float64 `yaml:"sample_ratio" envconfig:"TRACER_SAMPLE_RATIO"`
}
