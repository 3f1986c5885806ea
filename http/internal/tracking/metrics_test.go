package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestRecorder(t *testing.T) (*Recorder, *sdkmetric.ManualReader, *tracetest.SpanRecorder) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	spans := tracetest.NewSpanRecorder()
	r := NewRecorder(
		sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)),
	)
	return r, reader, spans
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		assert.Equal(t, instrumentationName, sm.Scope.Name)
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestNewRecorderFallsBackToGlobals(t *testing.T) {
	r := NewRecorder(nil, nil)
	require.NotNil(t, r)

	ctx, span := r.StartRequest(context.Background(), "GET", "http://api.test")
	r.RecordAttempt(ctx, "GET", 200, "")
	r.RecordRetry(ctx, "GET", 1, time.Millisecond)
	r.EndRequest(ctx, span, "GET", 200, 0, time.Millisecond, nil, "")
}

func TestRecordAttempts(t *testing.T) {
	r, reader, _ := newTestRecorder(t)
	ctx := context.Background()

	r.RecordAttempt(ctx, "GET", 503, "")
	r.RecordAttempt(ctx, "GET", 0, "transport")
	r.RecordAttempt(ctx, "GET", 200, "")

	data := collect(t, reader)
	sum, ok := data[metricAttempts].(metricdata.Sum[int64])
	require.True(t, ok)

	byStatus := make(map[int64]int64)
	var transportFailures int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attrStatusCode); ok {
			byStatus[v.AsInt64()] += dp.Value
		}
		if v, ok := dp.Attributes.Value(attrErrorType); ok && v.AsString() == "transport" {
			transportFailures += dp.Value
		}
	}
	assert.Equal(t, map[int64]int64{503: 1, 200: 1}, byStatus)
	assert.Equal(t, int64(1), transportFailures)
}

func TestRequestLifecycle(t *testing.T) {
	r, reader, spans := newTestRecorder(t)

	ctx, span := r.StartRequest(context.Background(), "POST", "http://api.test/orders")
	assert.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())

	r.RecordRetry(ctx, "POST", 1, 100*time.Millisecond)
	r.RecordRetry(ctx, "POST", 2, 200*time.Millisecond)
	r.EndRequest(ctx, span, "POST", 503, 2, 300*time.Millisecond, errors.New("exhausted"), "response")

	data := collect(t, reader)

	retries, ok := data[metricRetries].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, retries.DataPoints, 1)
	assert.Equal(t, int64(2), retries.DataPoints[0].Value)

	failures, ok := data[metricFailures].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, failures.DataPoints, 1)
	assert.Equal(t, int64(1), failures.DataPoints[0].Value)

	duration, ok := data[metricRequestDuration].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, duration.DataPoints, 1)
	assert.Equal(t, uint64(1), duration.DataPoints[0].Count)
	assert.InDelta(t, 0.3, duration.DataPoints[0].Sum, 1e-9)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	s := ended[0]
	assert.Equal(t, "HTTP POST", s.Name())
	assert.Equal(t, trace.SpanKindClient, s.SpanKind())
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Contains(t, s.Attributes(), attribute.Int(attrResendCount, 2))
	assert.Contains(t, s.Attributes(), attribute.String(attrURL, "http://api.test/orders"))

	events := s.Events()
	require.Len(t, events, 3) // two retries plus the recorded error
	assert.Equal(t, "retry", events[0].Name)
	assert.Contains(t, events[1].Attributes, attribute.Int64(attrRetryDelay, 200))
}

func TestSuccessfulRequestHasNoFailure(t *testing.T) {
	r, reader, spans := newTestRecorder(t)

	ctx, span := r.StartRequest(context.Background(), "GET", "http://api.test")
	r.EndRequest(ctx, span, "GET", 200, 0, 10*time.Millisecond, nil, "")

	data := collect(t, reader)
	_, hasFailures := data[metricFailures]
	assert.False(t, hasFailures)

	require.Len(t, spans.Ended(), 1)
	assert.Equal(t, codes.Unset, spans.Ended()[0].Status().Code)
}
