package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-bricks-http/config"
	"github.com/gaborage/go-bricks-http/http"
	"github.com/gaborage/go-bricks-http/logger"
	"github.com/gaborage/go-bricks-http/observability"
)

func runRequest(cmd *cobra.Command, opts *options, method, target string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, cfg)

	headers, err := parsePairs(opts.headers, "header")
	if err != nil {
		return err
	}
	params, err := parsePairs(opts.params, "param")
	if err != nil {
		return err
	}
	body, err := readBody(opts.data)
	if err != nil {
		return err
	}

	log := logger.NewTo(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Pretty)

	provider, err := observability.NewProvider(observability.Config{
		Enabled:  cfg.Observability.Enabled,
		Service:  cfg.Observability.Service,
		Exporter: cfg.Observability.Exporter,
		Protocol: cfg.Observability.Protocol,
		Endpoint: cfg.Observability.Endpoint,
		Insecure: cfg.Observability.Insecure,
		Writer:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := observability.Shutdown(provider, 0); shutdownErr != nil {
			log.Warn().Err(shutdownErr).Msg("Failed to flush telemetry")
		}
	}()

	client := http.NewClientFromConfig(log, cfg.ClientConfig(), func(b *http.Builder) {
		b.WithMetrics(provider.MeterProvider(), provider.TracerProvider()).
			WithRequestInterceptor(http.NewRequestIDInterceptor())
		if cfg.Observability.Enabled {
			b.WithRequestInterceptor(http.NewPropagationInterceptor())
		}
	})
	if opts.token != "" {
		client.SetAuthToken(opts.token)
	}

	result, err := client.Request(cmd.Context(), &http.RequestConfig{
		Method:  method,
		URL:     target,
		Headers: headers,
		Params:  params,
		Body:    body,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d %s\n", result.Status, result.StatusText)
	if len(result.Data) > 0 {
		_, _ = out.Write(result.Data)
		if result.Data[len(result.Data)-1] != '\n' {
			fmt.Fprintln(out)
		}
	}
	if opts.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "retries=%d elapsed=%s\n", result.Stats.Retries, result.Stats.ElapsedTime)
	}
	return nil
}

// applyFlags overlays the flags the user actually set onto the loaded config
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("retries") {
		cfg.Client.Retry.Count = opts.retries
		cfg.Client.Retry.Enabled = true
	}
	if flags.Changed("retry-delay") {
		cfg.Client.Retry.Delay = opts.retryDelay
	}
	if opts.noRetry {
		cfg.Client.Retry.Enabled = false
	}
	if flags.Changed("timeout") && opts.timeout > 0 {
		cfg.Client.Timeout = opts.timeout
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
}

// parsePairs splits key=value flags; "key: value" is accepted for headers
func parsePairs(values []string, kind string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	pairs := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok && kind == "header" {
			key, value, ok = strings.Cut(v, ":")
		}
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid %s %q: expected key=value", kind, v)
		}
		pairs[key] = strings.TrimSpace(value)
	}
	return pairs, nil
}

func readBody(data string) ([]byte, error) {
	switch {
	case data == "":
		return nil, nil
	case data == "@-":
		return io.ReadAll(os.Stdin)
	case strings.HasPrefix(data, "@"):
		body, err := os.ReadFile(strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		return body, nil
	default:
		return []byte(data), nil
	}
}
