package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config represents the configuration of the resthttp tool and of any
// client built from a config file. The embedded koanf.Koanf instance keeps
// the merged sources available for keys outside the struct.
type Config struct {
	Client        ClientConfig        `koanf:"client" json:"client" yaml:"client"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability"`

	k *koanf.Koanf `json:"-" yaml:"-"`
}

// ClientConfig holds the REST client defaults.
type ClientConfig struct {
	// BaseURL is joined with relative request URLs.
	BaseURL string `koanf:"baseurl" json:"baseurl" yaml:"baseurl" validate:"omitempty,url"`

	// Timeout bounds a single attempt.
	// Default: 60s.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`

	// Headers are sent with every request. Keys are canonicalized by the client.
	Headers map[string]string `koanf:"headers" json:"headers" yaml:"headers"`

	Retry RetryConfig `koanf:"retry" json:"retry" yaml:"retry"`
	Auth  AuthConfig  `koanf:"auth" json:"auth" yaml:"auth"`

	// LogPayloads enables debug logging of headers and bodies.
	LogPayloads bool `koanf:"logpayloads" json:"logpayloads" yaml:"logpayloads"`
	// MaxPayloadLogBytes caps each logged body.
	// Default: 1024.
	MaxPayloadLogBytes int `koanf:"maxpayloadlogbytes" json:"maxpayloadlogbytes" yaml:"maxpayloadlogbytes" validate:"gte=0"`
}

// RetryConfig mirrors the client retry policy.
// Defaults: one retry, 100ms base delay, enabled, no delay cap.
type RetryConfig struct {
	Count    int           `koanf:"count" json:"count" yaml:"count" validate:"gte=0,lte=100"`
	Delay    time.Duration `koanf:"delay" json:"delay" yaml:"delay" validate:"gte=0"`
	Enabled  bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	MaxDelay time.Duration `koanf:"maxdelay" json:"maxdelay" yaml:"maxdelay" validate:"gte=0"`
}

// AuthConfig holds optional credentials. Token takes precedence over basic auth.
type AuthConfig struct {
	Username string `koanf:"username" json:"username" yaml:"username" validate:"required_with=Password"`
	Password string `koanf:"password" json:"-" yaml:"password"`
	Token    string `koanf:"token" json:"-" yaml:"token"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// ObservabilityConfig selects where client metrics and spans are exported.
type ObservabilityConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`
	// Exporter is "stdout" or "otlp".
	Exporter string `koanf:"exporter" json:"exporter" yaml:"exporter" validate:"oneof=stdout otlp"`
	// Protocol is the OTLP transport, "http" or "grpc".
	Protocol string `koanf:"protocol" json:"protocol" yaml:"protocol" validate:"oneof=http grpc"`
	// Endpoint is the collector host:port, required for the otlp exporter.
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint" validate:"required_if=Exporter otlp"`
	// Insecure disables TLS towards the collector.
	Insecure bool   `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Service  string `koanf:"service" json:"service" yaml:"service" validate:"required"`
}
