package http

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/url"
	"time"

	"github.com/gaborage/go-bricks-http/logger"
)

// Client defines the REST client interface for making HTTP requests
type Client interface {
	Request(ctx context.Context, cfg *RequestConfig) (*Result, error)
	Get(ctx context.Context, cfg *RequestConfig) (*Result, error)
	Post(ctx context.Context, cfg *RequestConfig) (*Result, error)
	Put(ctx context.Context, cfg *RequestConfig) (*Result, error)
	Patch(ctx context.Context, cfg *RequestConfig) (*Result, error)
	Delete(ctx context.Context, cfg *RequestConfig) (*Result, error)

	HeaderManager

	// RetryPolicy returns a copy of the client-level retry policy
	RetryPolicy() RetryPolicy
	// UpdateRetryPolicy applies fn to the client-level retry policy
	UpdateRetryPolicy(fn func(*RetryPolicy))
	// Config returns a copy of the client defaults
	Config() Config
}

// HeaderManager groups the operations on the client's default headers.
// Default headers are shared by every request issued by the client and are
// captured when a request is dispatched.
type HeaderManager interface {
	SetDefaultHeader(key, value string)
	SetDefaultHeaders(headers map[string]string)
	SetAuthToken(token string)
	ClearAuthToken()
	RemoveHeader(key string)
	Headers() map[string]string
}

// RequestConfig carries the per-call options. A zero or nil field is unset
// and leaves the client default in place; a set field replaces the default
// as a whole.
type RequestConfig struct {
	// Method is the HTTP verb; verb helpers override it.
	Method string
	// URL is absolute or relative to BaseURL.
	URL string
	// BaseURL replaces the client base URL.
	BaseURL string
	// Headers are applied on top of the client default headers.
	Headers map[string]string
	// Params are encoded into the query string.
	Params map[string]string
	// Body is sent as is on every attempt.
	Body []byte
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// Auth sets basic credentials for this call.
	Auth *BasicAuth
	// Retry replaces the client retry policy for this call.
	Retry *RetryPolicy
	// Meta threads pre-existing retry state; callers normally leave it nil.
	Meta *Metadata
}

// Request is the descriptor handed to interceptors and the transport. The
// same Request is re-dispatched on retries and shares one Metadata.
type Request struct {
	Method  string
	URL     string
	Headers nethttp.Header
	Query   url.Values
	Body    []byte
	Timeout time.Duration
	Meta    *Metadata
}

// RawResponse is what a Transport returns for any received response,
// whatever its status.
type RawResponse struct {
	StatusCode int
	Status     string
	Headers    nethttp.Header
	Body       []byte
}

// Result is the normalized success envelope
type Result struct {
	Data       []byte
	Status     int
	StatusText string
	Headers    nethttp.Header
	Config     RequestConfig
	Stats      Stats
}

// Decode unmarshals the JSON body into v
func (r *Result) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	Retries     int
	CallCount   int64
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before every attempt is dispatched
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor is called with every accepted response
type ResponseInterceptor func(ctx context.Context, req *Request, resp *RawResponse) error

// ErrorInterceptor is called with every classified attempt error before the
// retry decision is taken
type ErrorInterceptor func(ctx context.Context, req *Request, err error) error

// Transport performs the network call for a resolved request
type Transport interface {
	Send(ctx context.Context, req *Request) (*RawResponse, error)
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(ctx context.Context, req *Request) (*RawResponse, error)

// Send calls f(ctx, req)
func (f TransportFunc) Send(ctx context.Context, req *Request) (*RawResponse, error) {
	return f(ctx, req)
}

// Config holds the REST client configuration
type Config struct {
	BaseURL              string
	Timeout              time.Duration
	Retry                RetryPolicy
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	ErrorInterceptors    []ErrorInterceptor
	BasicAuth            *BasicAuth
	DefaultHeaders       map[string]string
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
}

// Option customizes the client built by NewClientFromConfig
type Option func(*Builder)

// NewClientFromConfig builds a client from a populated Config
func NewClientFromConfig(log logger.Logger, cfg Config, opts ...Option) Client {
	b := NewBuilder(log)
	b.config.BaseURL = cfg.BaseURL
	if cfg.Timeout > 0 {
		b.config.Timeout = cfg.Timeout
	}
	b.config.Retry = cfg.Retry
	b.config.BasicAuth = cfg.BasicAuth
	b.config.LogPayloads = cfg.LogPayloads
	if cfg.MaxPayloadLogBytes > 0 {
		b.config.MaxPayloadLogBytes = cfg.MaxPayloadLogBytes
	}
	for k, v := range cfg.DefaultHeaders {
		b.config.DefaultHeaders[k] = v
	}
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, cfg.RequestInterceptors...)
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, cfg.ResponseInterceptors...)
	b.config.ErrorInterceptors = append(b.config.ErrorInterceptors, cfg.ErrorInterceptors...)
	for _, opt := range opts {
		opt(b)
	}
	return b.Build()
}
