package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-bricks-http/http"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 1, cfg.Client.Retry.Count)
	assert.Equal(t, 100*time.Millisecond, cfg.Client.Retry.Delay)
	assert.True(t, cfg.Client.Retry.Enabled)
	assert.Zero(t, cfg.Client.Retry.MaxDelay)
	assert.Equal(t, 1024, cfg.Client.MaxPayloadLogBytes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Observability.Enabled)
	assert.Equal(t, "stdout", cfg.Observability.Exporter)
	assert.Equal(t, "http", cfg.Observability.Protocol)
	assert.Equal(t, "resthttp", cfg.Observability.Service)

	assert.Equal(t, http.DefaultRetryPolicy(), cfg.ClientConfig().Retry)
}

func TestLoadBytes(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
client:
  baseurl: https://api.example.com/v1
  timeout: 5s
  headers:
    x-tenant: acme
  retry:
    count: 3
    delay: 250ms
    maxdelay: 1s
log:
  level: debug
  pretty: true
custom:
  key: value
`))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.Client.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, map[string]string{"x-tenant": "acme"}, cfg.Client.Headers)
	assert.Equal(t, RetryConfig{Count: 3, Delay: 250 * time.Millisecond, Enabled: true, MaxDelay: time.Second}, cfg.Client.Retry)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, "value", cfg.GetString("custom.key"))
	assert.Equal(t, "fallback", cfg.GetString("custom.missing", "fallback"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resthttp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client:\n  retry:\n    enabled: false\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Client.Retry.Enabled)
	assert.Equal(t, 1, cfg.Client.Retry.Count)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := LoadBytes([]byte("client: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse yaml")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("RESTHTTP_CLIENT_BASEURL", "http://env.test")
	t.Setenv("RESTHTTP_CLIENT_RETRY_COUNT", "4")
	t.Setenv("RESTHTTP_CLIENT_RETRY_ENABLED", "false")
	t.Setenv("RESTHTTP_LOG_LEVEL", "warn")

	cfg, err := LoadBytes([]byte("client:\n  baseurl: http://file.test\n  retry:\n    count: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://env.test", cfg.Client.BaseURL)
	assert.Equal(t, 4, cfg.Client.Retry.Count)
	assert.False(t, cfg.Client.Retry.Enabled)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantField string
		category  string
	}{
		{
			name:      "negative retry count",
			yaml:      "client:\n  retry:\n    count: -1\n",
			wantField: "client.retry.count",
			category:  "invalid",
		},
		{
			name:      "retry count too large",
			yaml:      "client:\n  retry:\n    count: 1000\n",
			wantField: "client.retry.count",
			category:  "invalid",
		},
		{
			name:      "zero timeout",
			yaml:      "client:\n  timeout: 0s\n",
			wantField: "client.timeout",
			category:  "invalid",
		},
		{
			name:      "relative base url",
			yaml:      "client:\n  baseurl: /v1\n",
			wantField: "client.baseurl",
			category:  "invalid",
		},
		{
			name:      "unknown log level",
			yaml:      "log:\n  level: verbose\n",
			wantField: "log.level",
			category:  "invalid",
		},
		{
			name:      "unknown otlp protocol",
			yaml:      "observability:\n  protocol: thrift\n",
			wantField: "observability.protocol",
			category:  "invalid",
		},
		{
			name:      "otlp without endpoint",
			yaml:      "observability:\n  exporter: otlp\n",
			wantField: "observability.endpoint",
			category:  "missing",
		},
		{
			name:      "password without username",
			yaml:      "client:\n  auth:\n    password: secret\n",
			wantField: "client.auth.username",
			category:  "missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.yaml))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
			assert.Equal(t, tt.wantField, cfgErr.Field)
			assert.Equal(t, tt.category, cfgErr.Category)
		})
	}
}

func TestConfigErrorMessages(t *testing.T) {
	missing := NewMissingFieldError("observability.endpoint")
	assert.Equal(t,
		"config_missing: observability.endpoint required set RESTHTTP_OBSERVABILITY_ENDPOINT env var or add observability.endpoint to the config file",
		missing.Error())

	invalid := NewInvalidFieldError("log.level", "invalid value", []string{"debug", "info"})
	assert.Equal(t, "config_invalid: log.level invalid value must be one of: debug, info", invalid.Error())
}

func TestClientConfig(t *testing.T) {
	t.Run("token", func(t *testing.T) {
		cfg, err := LoadBytes([]byte(`
client:
  baseurl: http://api.test
  headers:
    accept: application/json
  auth:
    token: abc
    username: ignored
    password: ignored
  logpayloads: true
`))
		require.NoError(t, err)

		cc := cfg.ClientConfig()
		assert.Equal(t, "http://api.test", cc.BaseURL)
		assert.Equal(t, 60*time.Second, cc.Timeout)
		assert.Equal(t, "Bearer abc", cc.DefaultHeaders[http.HeaderAuthorization])
		assert.Equal(t, "application/json", cc.DefaultHeaders["accept"])
		assert.Nil(t, cc.BasicAuth)
		assert.True(t, cc.LogPayloads)

		cc.DefaultHeaders["accept"] = "text/plain"
		assert.Equal(t, "application/json", cfg.Client.Headers["accept"])
	})

	t.Run("basic auth", func(t *testing.T) {
		cfg, err := LoadBytes([]byte("client:\n  auth:\n    username: u\n    password: p\n"))
		require.NoError(t, err)

		cc := cfg.ClientConfig()
		require.NotNil(t, cc.BasicAuth)
		assert.Equal(t, http.BasicAuth{Username: "u", Password: "p"}, *cc.BasicAuth)
		assert.NotContains(t, cc.DefaultHeaders, http.HeaderAuthorization)
	})
}
