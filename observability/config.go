package observability

import (
	"fmt"
	"io"
	"os"
	"time"
)

const (
	// ExporterStdout writes spans and metrics as JSON to Config.Writer.
	ExporterStdout = "stdout"
	// ExporterOTLP ships spans and metrics to an OpenTelemetry collector.
	ExporterOTLP = "otlp"

	// ProtocolHTTP selects OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"
	// ProtocolGRPC selects OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// DefaultMetricInterval is how often metrics are exported.
	DefaultMetricInterval = 10 * time.Second
	// DefaultBatchTimeout bounds how long spans wait in the batch processor.
	DefaultBatchTimeout = 5 * time.Second
)

// Config configures the telemetry pipeline of the REST client.
type Config struct {
	// Enabled switches exporting on; a disabled config yields no-op providers.
	Enabled bool
	// Service is reported as service.name.
	Service string
	// Version is reported as service.version when set.
	Version string

	// Exporter is ExporterStdout or ExporterOTLP.
	// Default: stdout.
	Exporter string
	// Protocol is ProtocolHTTP or ProtocolGRPC, used by the otlp exporter.
	// Default: http.
	Protocol string
	// Endpoint is the collector host:port.
	Endpoint string
	// Insecure disables TLS towards the collector.
	Insecure bool
	// Headers are sent to the collector, e.g. for authentication.
	Headers map[string]string

	// Writer receives stdout exporter output.
	// Default: os.Stderr, keeping stdout free for response bodies.
	Writer io.Writer

	MetricInterval time.Duration
	BatchTimeout   time.Duration
}

// ApplyDefaults fills unset fields with production-safe values
func (c *Config) ApplyDefaults() {
	if c.Exporter == "" {
		c.Exporter = ExporterStdout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}
	if c.Writer == nil {
		c.Writer = os.Stderr
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = DefaultMetricInterval
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = DefaultBatchTimeout
	}
}

// Validate checks an enabled configuration; disabled configurations are always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Service == "" {
		return ErrMissingServiceName
	}

	switch c.Exporter {
	case ExporterStdout:
		return nil
	case ExporterOTLP:
	default:
		return fmt.Errorf("exporter '%s': %w", c.Exporter, ErrInvalidExporter)
	}

	if c.Protocol != ProtocolHTTP && c.Protocol != ProtocolGRPC {
		return fmt.Errorf("protocol '%s': %w", c.Protocol, ErrInvalidProtocol)
	}
	if c.Endpoint == "" {
		return ErrMissingEndpoint
	}
	return nil
}
