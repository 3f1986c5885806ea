package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/gaborage/go-bricks-http/http/internal/tracking"
	"github.com/gaborage/go-bricks-http/logger"
)

// pipeline runs the interceptor chains around the transport and drives the
// retry loop of a single logical request.
type pipeline struct {
	transport            Transport
	clock                Clock
	logger               logger.Logger
	recorder             *tracking.Recorder
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	errorInterceptors    []ErrorInterceptor
	logPayloads          bool
	maxPayloadLogBytes   int
}

// execute dispatches req until it succeeds, fails with a non-retryable
// error, or the retry budget of policy is used up. Attempts are strictly
// sequential and all share req.Meta.
func (p *pipeline) execute(ctx context.Context, req *Request, policy RetryPolicy) (*RawResponse, error) {
	for {
		resp, err := p.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		if IsErrorType(err, InterceptorError) {
			return nil, err
		}

		if hookErr := p.runErrorInterceptors(ctx, req, err); hookErr != nil {
			return nil, NewInterceptorError("error interceptor failed", "error", hookErr)
		}

		if ctx.Err() != nil {
			return nil, err
		}

		decision := Decide(err, req.Meta, policy)
		if !decision.Retry {
			return nil, err
		}

		req.Meta.Bump()
		p.logRetry(req, policy, decision)
		p.recorder.RecordRetry(ctx, req.Method, req.Meta.RetryCount, decision.Delay)

		if sleepErr := p.clock.Sleep(ctx, decision.Delay); sleepErr != nil {
			return nil, fmt.Errorf("retry wait interrupted: %w", errors.Join(sleepErr, err))
		}
	}
}

// attempt performs one dispatch: outgoing chain, transport, classification
// and the incoming-success chain.
func (p *pipeline) attempt(ctx context.Context, req *Request) (*RawResponse, error) {
	EnsureMetadata(req, p.clock.Now())

	if err := p.runRequestInterceptors(ctx, req); err != nil {
		return nil, NewInterceptorError("request interceptor failed", "request", err)
	}

	p.logRequest(req)

	resp, err := p.transport.Send(ctx, req)
	if err != nil {
		classified := classifyTransportError(err, req.Timeout)
		p.recorder.RecordAttempt(ctx, req.Method, 0, string(classified.Type()))
		return nil, classified
	}

	p.recorder.RecordAttempt(ctx, req.Method, resp.StatusCode, "")
	p.logResponse(req, resp)

	if !IsSuccessStatus(resp.StatusCode) {
		return nil, NewResponseError(
			fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode),
			resp.StatusCode,
			resp.Body,
			resp.Headers,
		)
	}

	if err := p.runResponseInterceptors(ctx, req, resp); err != nil {
		return nil, NewInterceptorError("response interceptor failed", "response", err)
	}
	return resp, nil
}

// runRequestInterceptors executes all request interceptors
func (p *pipeline) runRequestInterceptors(ctx context.Context, req *Request) error {
	for _, interceptor := range p.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func (p *pipeline) runResponseInterceptors(ctx context.Context, req *Request, resp *RawResponse) error {
	for _, interceptor := range p.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) runErrorInterceptors(ctx context.Context, req *Request, attemptErr error) error {
	for _, interceptor := range p.errorInterceptors {
		if err := interceptor(ctx, req, attemptErr); err != nil {
			return err
		}
	}
	return nil
}

// logRetry emits one warn line per scheduled retry
func (p *pipeline) logRetry(req *Request, policy RetryPolicy, decision Decision) {
	p.logger.Warn().
		Int("attempt", req.Meta.RetryCount).
		Int("max_retries", policy.RetryCount).
		Str("method", req.Method).
		Str("url", req.URL).
		Int64("elapsed_ms", req.Meta.Elapsed(p.clock.Now()).Milliseconds()).
		Dur("delay", decision.Delay).
		Msg("REST client retry")
}

// logRequest logs the outgoing attempt
func (p *pipeline) logRequest(req *Request) {
	logEvent := p.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL).
		Int("retry_count", req.Meta.RetryCount)

	if p.logPayloads {
		if len(req.Headers) > 0 {
			logEvent = logEvent.Interface("headers", req.Headers)
		}
		if len(req.Body) > 0 {
			logEvent = logEvent.Bytes("body", p.truncate(req.Body))
		}
	}

	logEvent.Msg("REST client request")
}

// logResponse logs the received response
func (p *pipeline) logResponse(req *Request, resp *RawResponse) {
	logEvent := p.logger.Debug().
		Str("direction", "inbound").
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Int64("elapsed_ms", req.Meta.Elapsed(p.clock.Now()).Milliseconds())

	if p.logPayloads && len(resp.Body) > 0 {
		logEvent = logEvent.Bytes("body", p.truncate(resp.Body))
	}

	logEvent.Msg("REST client response")
}

func (p *pipeline) truncate(body []byte) []byte {
	if p.maxPayloadLogBytes > 0 && len(body) > p.maxPayloadLogBytes {
		return body[:p.maxPayloadLogBytes]
	}
	return body
}
