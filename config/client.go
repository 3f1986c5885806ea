package config

import (
	"maps"

	"github.com/gaborage/go-bricks-http/http"
)

// ClientConfig maps the client section onto the REST client configuration.
// An auth token becomes a bearer Authorization default header; basic
// credentials are used only when no token is set.
func (c *Config) ClientConfig() http.Config {
	cc := c.Client

	headers := make(map[string]string, len(cc.Headers)+1)
	maps.Copy(headers, cc.Headers)

	cfg := http.Config{
		BaseURL: cc.BaseURL,
		Timeout: cc.Timeout,
		Retry: http.RetryPolicy{
			RetryCount:    cc.Retry.Count,
			RetryDelay:    cc.Retry.Delay,
			RetryEnabled:  cc.Retry.Enabled,
			MaxRetryDelay: cc.Retry.MaxDelay,
		},
		DefaultHeaders:     headers,
		LogPayloads:        cc.LogPayloads,
		MaxPayloadLogBytes: cc.MaxPayloadLogBytes,
	}

	switch {
	case cc.Auth.Token != "":
		headers[http.HeaderAuthorization] = "Bearer " + cc.Auth.Token
	case cc.Auth.Username != "":
		cfg.BasicAuth = &http.BasicAuth{Username: cc.Auth.Username, Password: cc.Auth.Password}
	}

	return cfg
}
