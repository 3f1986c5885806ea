// Package tracking records OpenTelemetry metrics and spans for the REST client.
package tracking

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Instrumentation scope for client metrics and spans
	instrumentationName = "go-bricks-http/client"

	// Metric names following OpenTelemetry HTTP client semantic conventions
	metricRequestDuration = "http.client.request.duration" // Histogram in seconds, per logical request
	metricAttempts        = "http.client.attempts"         // Counter, one per transport dispatch
	metricRetries         = "http.client.retries"          // Counter, one per scheduled retry
	metricFailures        = "http.client.failures"         // Counter, one per terminal error

	attrMethod      = "http.request.method"
	attrStatusCode  = "http.response.status_code"
	attrResendCount = "http.request.resend_count"
	attrErrorType   = "error.type"
	attrURL         = "url.full"
	attrRetryDelay  = "retry.delay_ms"
)

// Recorder holds the instruments used by one client instance
type Recorder struct {
	tracer          trace.Tracer
	requestDuration metric.Float64Histogram
	attempts        metric.Int64Counter
	retries         metric.Int64Counter
	failures        metric.Int64Counter
}

// logMetricError logs a metric initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize http client metric %s: %v\n", metricName, err)
	}
}

// NewRecorder creates instruments from the given providers, falling back to
// the global OpenTelemetry providers when either is nil.
func NewRecorder(mp metric.MeterProvider, tp trace.TracerProvider) *Recorder {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	meter := mp.Meter(instrumentationName)
	r := &Recorder{tracer: tp.Tracer(instrumentationName)}

	var err error
	r.requestDuration, err = meter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("Duration of logical HTTP client requests including retries"),
		metric.WithUnit("s"),
	)
	logMetricError(metricRequestDuration, err)
	if err != nil {
		r.requestDuration = metricnoop.Float64Histogram{}
	}

	r.attempts, err = meter.Int64Counter(
		metricAttempts,
		metric.WithDescription("Number of transport dispatches"),
		metric.WithUnit("{attempt}"),
	)
	logMetricError(metricAttempts, err)
	if err != nil {
		r.attempts = metricnoop.Int64Counter{}
	}

	r.retries, err = meter.Int64Counter(
		metricRetries,
		metric.WithDescription("Number of retries scheduled after a retryable failure"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(metricRetries, err)
	if err != nil {
		r.retries = metricnoop.Int64Counter{}
	}

	r.failures, err = meter.Int64Counter(
		metricFailures,
		metric.WithDescription("Number of requests that ended with a terminal error"),
		metric.WithUnit("{request}"),
	)
	logMetricError(metricFailures, err)
	if err != nil {
		r.failures = metricnoop.Int64Counter{}
	}

	return r
}

// StartRequest opens the client span covering every attempt of a logical request
func (r *Recorder) StartRequest(ctx context.Context, method, url string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrMethod, method),
			attribute.String(attrURL, url),
		),
	)
}

// RecordAttempt counts one dispatch. status is zero when no response was received.
func (r *Recorder) RecordAttempt(ctx context.Context, method string, status int, errorType string) {
	attrs := []attribute.KeyValue{attribute.String(attrMethod, method)}
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrStatusCode, status))
	}
	if errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}
	r.attempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRetry counts a scheduled retry and adds a span event for it
func (r *Recorder) RecordRetry(ctx context.Context, method string, attempt int, delay time.Duration) {
	r.retries.Add(ctx, 1, metric.WithAttributes(attribute.String(attrMethod, method)))
	trace.SpanFromContext(ctx).AddEvent("retry", trace.WithAttributes(
		attribute.Int(attrResendCount, attempt),
		attribute.Int64(attrRetryDelay, delay.Milliseconds()),
	))
}

// EndRequest records the terminal outcome and closes the span
func (r *Recorder) EndRequest(ctx context.Context, span trace.Span, method string, status, retries int, elapsed time.Duration, err error, errorType string) {
	attrs := []attribute.KeyValue{attribute.String(attrMethod, method)}
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrStatusCode, status))
	}
	if errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}

	r.requestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	if err != nil {
		r.failures.Add(ctx, 1, metric.WithAttributes(attrs...))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(append(attrs, attribute.Int(attrResendCount, retries))...)
	span.End()
}
