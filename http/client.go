package http

import (
	"context"
	"encoding/base64"
	"errors"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-bricks-http/http/internal/tracking"
	"github.com/gaborage/go-bricks-http/logger"
)

const (
	// DefaultTimeout is the default per-attempt timeout
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default retry budget
	DefaultMaxRetries = 1

	// DefaultRetryDelay is the default base delay for exponential backoff
	DefaultRetryDelay = 100 * time.Millisecond

	// DefaultMaxPayloadLogBytes caps logged bodies when payload logging is on
	DefaultMaxPayloadLogBytes = 1024

	// HeaderAuthorization is the header set by SetAuthToken
	HeaderAuthorization = "Authorization"

	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// DefaultRetryPolicy returns the retry policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		RetryCount:   DefaultMaxRetries,
		RetryDelay:   DefaultRetryDelay,
		RetryEnabled: true,
	}
}

// client implements the Client interface
type client struct {
	logger    logger.Logger
	config    *Config
	pipeline  *pipeline
	clock     Clock
	recorder  *tracking.Recorder
	callCount int64

	// mu guards the default headers and the client retry policy
	mu      sync.RWMutex
	headers map[string]string
}

// NewClient creates a new REST client with default configuration
func NewClient(log logger.Logger) Client {
	return NewBuilder(log).Build()
}

// Builder provides a fluent interface for configuring the REST client
type Builder struct {
	config         *Config
	logger         logger.Logger
	transport      Transport
	clock          Clock
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			Timeout:              DefaultTimeout,
			Retry:                DefaultRetryPolicy(),
			RequestInterceptors:  []RequestInterceptor{},
			ResponseInterceptors: []ResponseInterceptor{},
			ErrorInterceptors:    []ErrorInterceptor{},
			DefaultHeaders:       make(map[string]string),
			MaxPayloadLogBytes:   DefaultMaxPayloadLogBytes,
		},
		logger: log,
	}
}

// WithBaseURL sets the URL that relative request URLs are resolved against
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the per-attempt timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithRetries enables retries with the given budget and base delay
func (b *Builder) WithRetries(maxRetries int, retryDelay time.Duration) *Builder {
	b.config.Retry.RetryCount = maxRetries
	b.config.Retry.RetryDelay = retryDelay
	b.config.Retry.RetryEnabled = true
	return b
}

// WithRetryPolicy replaces the retry policy
func (b *Builder) WithRetryPolicy(policy RetryPolicy) *Builder {
	b.config.Retry = policy
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{
		Username: username,
		Password: password,
	}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithErrorInterceptor adds an interceptor observing failed attempts
func (b *Builder) WithErrorInterceptor(interceptor ErrorInterceptor) *Builder {
	b.config.ErrorInterceptors = append(b.config.ErrorInterceptors, interceptor)
	return b
}

// WithTransport replaces the transport used to send requests
func (b *Builder) WithTransport(transport Transport) *Builder {
	b.transport = transport
	return b
}

// WithHTTPClient sends requests through the given *http.Client
func (b *Builder) WithHTTPClient(httpClient *nethttp.Client) *Builder {
	b.transport = NewHTTPTransport(httpClient)
	return b
}

// WithClock replaces the clock used for timestamps and backoff waits
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithMetrics sets the OpenTelemetry providers; nil falls back to the globals
func (b *Builder) WithMetrics(mp metric.MeterProvider, tp trace.TracerProvider) *Builder {
	b.meterProvider = mp
	b.tracerProvider = tp
	return b
}

// WithPayloadLogging enables debug logging of headers and bodies
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.config.LogPayloads = true
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// Build creates the REST client with the configured options
func (b *Builder) Build() Client {
	transport := b.transport
	if transport == nil {
		transport = NewHTTPTransport(nil)
	}
	clock := b.clock
	if clock == nil {
		clock = realClock{}
	}
	log := b.logger
	if log == nil {
		log = logger.Nop()
	}
	recorder := tracking.NewRecorder(b.meterProvider, b.tracerProvider)

	headers := make(map[string]string, len(b.config.DefaultHeaders))
	for k, v := range b.config.DefaultHeaders {
		headers[nethttp.CanonicalHeaderKey(k)] = v
	}

	return &client{
		logger:   log,
		config:   b.config,
		clock:    clock,
		recorder: recorder,
		headers:  headers,
		pipeline: &pipeline{
			transport:            transport,
			clock:                clock,
			logger:               log,
			recorder:             recorder,
			requestInterceptors:  b.config.RequestInterceptors,
			responseInterceptors: b.config.ResponseInterceptors,
			errorInterceptors:    b.config.ErrorInterceptors,
			logPayloads:          b.config.LogPayloads,
			maxPayloadLogBytes:   b.config.MaxPayloadLogBytes,
		},
	}
}

// Request performs a request using the method from cfg, GET when unset
func (c *client) Request(ctx context.Context, cfg *RequestConfig) (*Result, error) {
	return c.do(ctx, c.mergeConfig(cfg))
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, cfg *RequestConfig) (*Result, error) {
	return c.doMethod(ctx, nethttp.MethodGet, cfg)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, cfg *RequestConfig) (*Result, error) {
	return c.doMethod(ctx, nethttp.MethodPost, cfg)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, cfg *RequestConfig) (*Result, error) {
	return c.doMethod(ctx, nethttp.MethodPut, cfg)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, cfg *RequestConfig) (*Result, error) {
	return c.doMethod(ctx, nethttp.MethodPatch, cfg)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, cfg *RequestConfig) (*Result, error) {
	return c.doMethod(ctx, nethttp.MethodDelete, cfg)
}

func (c *client) doMethod(ctx context.Context, method string, cfg *RequestConfig) (*Result, error) {
	merged := c.mergeConfig(cfg)
	merged.Method = method
	return c.do(ctx, merged)
}

// mergeConfig starts from the client defaults and overlays every field set
// in cfg. Fields are replaced whole:
//   - Method, URL, BaseURL: when non-empty
//   - Headers, Params, Body, Auth, Retry, Meta: when non-nil
//   - Timeout: when positive
//
// The retry policy is not part of the defaults; it is resolved separately
// when the request runs.
func (c *client) mergeConfig(cfg *RequestConfig) RequestConfig {
	merged := RequestConfig{
		Method:  nethttp.MethodGet,
		BaseURL: c.config.BaseURL,
		Timeout: c.config.Timeout,
	}
	if cfg == nil {
		return merged
	}

	if cfg.Method != "" {
		merged.Method = strings.ToUpper(cfg.Method)
	}
	if cfg.URL != "" {
		merged.URL = cfg.URL
	}
	if cfg.BaseURL != "" {
		merged.BaseURL = cfg.BaseURL
	}
	if cfg.Headers != nil {
		merged.Headers = cfg.Headers
	}
	if cfg.Params != nil {
		merged.Params = cfg.Params
	}
	if cfg.Body != nil {
		merged.Body = cfg.Body
	}
	if cfg.Timeout > 0 {
		merged.Timeout = cfg.Timeout
	}
	if cfg.Auth != nil {
		merged.Auth = cfg.Auth
	}
	if cfg.Retry != nil {
		merged.Retry = cfg.Retry
	}
	if cfg.Meta != nil {
		merged.Meta = cfg.Meta
	}
	return merged
}

// do runs one logical request and normalizes its outcome
func (c *client) do(ctx context.Context, cfg RequestConfig) (*Result, error) {
	policy := c.RetryPolicy()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}

	req, err := c.buildRequest(cfg)
	if err != nil {
		reqErr := &RequestError{Err: err, Method: cfg.Method, URL: cfg.URL, Budget: policy.RetryCount}
		c.logFailure(reqErr)
		return nil, reqErr
	}

	callCount := atomic.AddInt64(&c.callCount, 1)
	ctx, span := c.recorder.StartRequest(ctx, req.Method, req.URL)

	resp, err := c.pipeline.execute(ctx, req, policy)
	elapsed := req.Meta.Elapsed(c.clock.Now())
	retries := 0
	if req.Meta != nil {
		retries = req.Meta.RetryCount
	}

	if err != nil {
		reqErr := &RequestError{
			Err:       err,
			Request:   req,
			Method:    req.Method,
			URL:       req.URL,
			Retries:   retries,
			Budget:    policy.RetryCount,
			Elapsed:   elapsed,
			Exhausted: ctx.Err() == nil && IsRetryable(err),
		}
		c.logFailure(reqErr)
		status, _ := StatusCodeOf(err)
		c.recorder.EndRequest(ctx, span, req.Method, status, retries, elapsed, err, errorTypeOf(err))
		return nil, reqErr
	}

	c.recorder.EndRequest(ctx, span, req.Method, resp.StatusCode, retries, elapsed, nil, "")
	cfg.Meta = req.Meta
	return &Result{
		Data:       resp.Body,
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		Headers:    resp.Headers,
		Config:     cfg,
		Stats: Stats{
			ElapsedTime: elapsed,
			Retries:     retries,
			CallCount:   callCount,
		},
	}, nil
}

// buildRequest resolves the URL and captures the headers for dispatch
func (c *client) buildRequest(cfg RequestConfig) (*Request, error) {
	if cfg.URL == "" && cfg.BaseURL == "" {
		return nil, NewValidationError("URL cannot be empty", "url")
	}

	fullURL, err := resolveURL(cfg.BaseURL, cfg.URL)
	if err != nil {
		return nil, NewValidationError("invalid URL: "+err.Error(), "url")
	}

	headers := make(nethttp.Header)
	for k, v := range c.Headers() {
		headers.Set(k, v)
	}
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}
	if headers.Get(headerContentType) == "" && cfg.Body != nil {
		headers.Set(headerContentType, contentTypeJSON)
	}

	// Request-specific auth always wins; client credentials never override
	// an Authorization header that is already present.
	switch {
	case cfg.Auth != nil:
		headers.Set(HeaderAuthorization, basicAuth(cfg.Auth))
	case c.config.BasicAuth != nil && headers.Get(HeaderAuthorization) == "":
		headers.Set(HeaderAuthorization, basicAuth(c.config.BasicAuth))
	}

	var query url.Values
	if len(cfg.Params) > 0 {
		query = make(url.Values, len(cfg.Params))
		for k, v := range cfg.Params {
			query.Set(k, v)
		}
	}

	return &Request{
		Method:  cfg.Method,
		URL:     fullURL,
		Headers: headers,
		Query:   query,
		Body:    cfg.Body,
		Timeout: cfg.Timeout,
		Meta:    cfg.Meta,
	}, nil
}

// resolveURL joins a relative URL onto base; absolute URLs are kept as is
func resolveURL(base, ref string) (string, error) {
	if ref != "" {
		parsed, err := url.Parse(ref)
		if err != nil {
			return "", err
		}
		if parsed.IsAbs() || base == "" {
			return ref, nil
		}
	}
	if ref == "" {
		return base, nil
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/"), nil
}

func basicAuth(auth *BasicAuth) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(auth.Username+":"+auth.Password))
}

func statusText(resp *RawResponse) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return nethttp.StatusText(resp.StatusCode)
	}
	return text
}

func errorTypeOf(err error) string {
	for _, t := range []ErrorType{TransportError, TimeoutError, ResponseError, ValidationError, InterceptorError} {
		if IsErrorType(err, t) {
			return string(t)
		}
	}
	return "unknown"
}

// logFailure records a terminal failure before it is returned to the caller
func (c *client) logFailure(reqErr *RequestError) {
	logEvent := c.logger.Error().
		Str("method", reqErr.Method).
		Str("url", reqErr.URL).
		Int("retries", reqErr.Retries).
		Int("max_retries", reqErr.Budget).
		Int64("elapsed_ms", reqErr.Elapsed.Milliseconds()).
		Bool("exhausted", reqErr.Exhausted)

	if status, ok := StatusCodeOf(reqErr.Err); ok {
		logEvent = logEvent.Int("status", status)
		var respErr *responseError
		if errors.As(reqErr.Err, &respErr) && len(respErr.Body()) > 0 {
			logEvent = logEvent.Bytes("body", c.pipeline.truncate(respErr.Body()))
		}
	} else if code := TransportCodeOf(reqErr.Err); code != "" {
		logEvent = logEvent.Str("code", code)
	}

	logEvent.Err(reqErr.Err).Msg("REST client request failed")
}

// SetDefaultHeader sets one default header
func (c *client) SetDefaultHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[nethttp.CanonicalHeaderKey(key)] = value
}

// SetDefaultHeaders sets several default headers at once
func (c *client) SetDefaultHeaders(headers map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range headers {
		c.headers[nethttp.CanonicalHeaderKey(k)] = v
	}
}

// SetAuthToken sets a bearer Authorization default header
func (c *client) SetAuthToken(token string) {
	c.SetDefaultHeader(HeaderAuthorization, "Bearer "+token)
}

// ClearAuthToken removes the Authorization default header
func (c *client) ClearAuthToken() {
	c.RemoveHeader(HeaderAuthorization)
}

// RemoveHeader removes a default header
func (c *client) RemoveHeader(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.headers, nethttp.CanonicalHeaderKey(key))
}

// Headers returns a copy of the default headers
func (c *client) Headers() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]string, len(c.headers))
	for k, v := range c.headers {
		snapshot[k] = v
	}
	return snapshot
}

// RetryPolicy returns a copy of the client retry policy
func (c *client) RetryPolicy() RetryPolicy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.Retry
}

// UpdateRetryPolicy applies fn to the client retry policy
func (c *client) UpdateRetryPolicy(fn func(*RetryPolicy)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.config.Retry)
}

// Config returns a copy of the client defaults, including the current
// default headers and retry policy
func (c *client) Config() Config {
	c.mu.RLock()
	cfg := *c.config
	c.mu.RUnlock()
	cfg.DefaultHeaders = c.Headers()
	cfg.RequestInterceptors = append([]RequestInterceptor(nil), c.config.RequestInterceptors...)
	cfg.ResponseInterceptors = append([]ResponseInterceptor(nil), c.config.ResponseInterceptors...)
	cfg.ErrorInterceptors = append([]ErrorInterceptor(nil), c.config.ErrorInterceptors...)
	if c.config.BasicAuth != nil {
		auth := *c.config.BasicAuth
		cfg.BasicAuth = &auth
	}
	return cfg
}
