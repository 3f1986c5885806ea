package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"syscall"
	"time"
)

// ClientError represents different types of REST client errors
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	TransportError   ErrorType = "transport"
	TimeoutError     ErrorType = "timeout"
	ResponseError    ErrorType = "response"
	ValidationError  ErrorType = "validation"
	InterceptorError ErrorType = "interceptor"
)

// Network-layer failure codes attached to transport errors
const (
	CodeConnRefused = "ECONNREFUSED"
	CodeNotFound    = "ENOTFOUND"
	CodeTimedOut    = "ETIMEDOUT"
	CodeConnReset   = "ECONNRESET"
)

// transportError represents a failure where no response was received
type transportError struct {
	message string
	code    string
	wrapped error
}

func (e *transportError) Error() string {
	msg := "transport error: " + e.message
	if e.code != "" {
		msg += " (" + e.code + ")"
	}
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

func (e *transportError) Type() ErrorType {
	return TransportError
}

// Code returns the network-layer failure code, empty when unknown
func (e *transportError) Code() string {
	return e.code
}

func (e *transportError) Unwrap() error {
	return e.wrapped
}

// timeoutError represents a transport-level timeout; no response was received
type timeoutError struct {
	message string
	timeout time.Duration
	wrapped error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType {
	return TimeoutError
}

func (e *timeoutError) Code() string {
	return CodeTimedOut
}

func (e *timeoutError) Unwrap() error {
	return e.wrapped
}

// responseError represents a response whose status is outside 2xx/3xx
type responseError struct {
	message    string
	statusCode int
	body       []byte
	headers    nethttp.Header
}

func (e *responseError) Error() string {
	return fmt.Sprintf("response error: %s (status: %d)", e.message, e.statusCode)
}

func (e *responseError) Type() ErrorType {
	return ResponseError
}

func (e *responseError) StatusCode() int {
	return e.statusCode
}

func (e *responseError) Body() []byte {
	return e.body
}

func (e *responseError) Headers() nethttp.Header {
	return e.headers
}

// validationError represents request validation errors
type validationError struct {
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

// interceptorError is a fault raised by a hook itself, as opposed to the
// transport outcome the hook was observing. It is never retried.
type interceptorError struct {
	message string
	wrapped error
	stage   string
}

func (e *interceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.wrapped)
}

func (e *interceptorError) Type() ErrorType {
	return InterceptorError
}

func (e *interceptorError) Stage() string {
	return e.stage
}

func (e *interceptorError) Unwrap() error {
	return e.wrapped
}

// NewTransportError creates a new transport error
func NewTransportError(message, code string, wrapped error) ClientError {
	return &transportError{
		message: message,
		code:    code,
		wrapped: wrapped,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, timeout time.Duration, wrapped error) ClientError {
	return &timeoutError{
		message: message,
		timeout: timeout,
		wrapped: wrapped,
	}
}

// NewResponseError creates a new response error
func NewResponseError(message string, statusCode int, body []byte, headers nethttp.Header) ClientError {
	return &responseError{
		message:    message,
		statusCode: statusCode,
		body:       body,
		headers:    headers,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string) ClientError {
	return &validationError{
		message: message,
		field:   field,
	}
}

// NewInterceptorError creates a new interceptor error
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &interceptorError{
		message: message,
		wrapped: wrapped,
		stage:   stage,
	}
}

// RequestError is the terminal error returned by the client once a logical
// request ends without a result. It wraps the last classified error and
// records how many retries were consumed.
type RequestError struct {
	Err     error
	Request *Request
	Method  string
	URL     string
	Retries int
	Budget  int
	Elapsed time.Duration
	// Exhausted is set when the last error was retryable but no retry was allowed.
	Exhausted bool
}

func (e *RequestError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("%s %s failed after %d/%d retries in %v: %v",
			e.Method, e.URL, e.Retries, e.Budget, e.Elapsed, e.Err)
	}
	return fmt.Sprintf("%s %s failed in %v: %v", e.Method, e.URL, e.Elapsed, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Metadata returns the retry state of the failed request, nil when the
// request never reached the pipeline.
func (e *RequestError) Metadata() *Metadata {
	if e.Request == nil {
		return nil
	}
	return e.Request.Meta
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError checks if an error is a response error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	var respErr *responseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode() == statusCode
	}
	return false
}

// StatusCodeOf returns the response status carried by err, if any
func StatusCodeOf(err error) (int, bool) {
	var respErr *responseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode(), true
	}
	return 0, false
}

// TransportCodeOf returns the network-layer failure code carried by err, if any
func TransportCodeOf(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}

// IsRetryBudgetExhausted reports whether err ended a request whose last
// failure was retryable but no further retry was permitted.
func IsRetryBudgetExhausted(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Exhausted
}

// IsSuccessStatus checks if a status code is accepted as a response (2xx or 3xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 400
}

// classifyTransportError maps an error from the transport into the
// taxonomy. Errors that already carry a type pass through unchanged.
func classifyTransportError(err error, timeout time.Duration) ClientError {
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}
	if isTimeout(err) {
		return NewTimeoutError("request timeout", timeout, err)
	}
	return NewTransportError("request execution failed", networkCode(err), err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func networkCode(err error) string {
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return CodeNotFound
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnRefused
	case errors.Is(err, syscall.ECONNRESET):
		return CodeConnReset
	case errors.Is(err, syscall.ETIMEDOUT):
		return CodeTimedOut
	}
	return ""
}
