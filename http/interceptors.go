package http

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/gaborage/go-bricks-http/trace"
)

const (
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = trace.HeaderXRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = trace.HeaderTraceParent
)

// NewRequestIDInterceptor creates a request interceptor that tags every
// attempt with an X-Request-ID header. The id comes from the context or is
// generated once, so retries of one request carry the same id.
func NewRequestIDInterceptor() RequestInterceptor {
	return NewRequestIDInterceptorFor(HeaderXRequestID)
}

// NewRequestIDInterceptorFor is NewRequestIDInterceptor with a custom header name
func NewRequestIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *Request) error {
		if req.Headers.Get(header) == "" {
			req.Headers.Set(header, trace.EnsureRequestID(ctx))
		}
		return nil
	}
}

// NewTraceParentInterceptor propagates a traceparent from the context, or
// generates one for the first attempt.
func NewTraceParentInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers.Get(HeaderTraceParent) != "" {
			return nil
		}
		if tp, ok := trace.ParentFromContext(ctx); ok {
			req.Headers.Set(HeaderTraceParent, tp)
			return nil
		}
		req.Headers.Set(HeaderTraceParent, trace.GenerateTraceParent())
		return nil
	}
}

// NewPropagationInterceptor injects the context of the client span into the
// outgoing headers using the global OpenTelemetry propagator. Unlike
// NewTraceParentInterceptor, the traceparent it writes matches the exported
// spans, and it is refreshed on every attempt.
func NewPropagationInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Headers))
		return nil
	}
}
