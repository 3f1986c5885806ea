package observability

import "errors"

// ErrMissingServiceName is returned when observability is enabled but no service name is configured.
var ErrMissingServiceName = errors.New("observability: service name is required when observability is enabled")

// ErrInvalidExporter is returned when the exporter is not "stdout" or "otlp".
var ErrInvalidExporter = errors.New("observability: exporter must be either 'stdout' or 'otlp'")

// ErrInvalidProtocol is returned when the OTLP protocol is not "http" or "grpc".
var ErrInvalidProtocol = errors.New("observability: protocol must be either 'http' or 'grpc'")

// ErrMissingEndpoint is returned when the otlp exporter has no collector endpoint.
var ErrMissingEndpoint = errors.New("observability: endpoint is required for the otlp exporter")
