package http

import (
	"context"
	"errors"
	"math"
	nethttp "net/http"
	"time"
)

// maxBackoffExponent keeps base * 2^n inside int64 for any sane base
const maxBackoffExponent = 30

// RetryPolicy configures automatic retries of failed requests
type RetryPolicy struct {
	// RetryCount is the maximum number of retries, not counting the first attempt
	RetryCount int
	// RetryDelay is the base delay; retry n waits RetryDelay * 2^n
	RetryDelay time.Duration
	// RetryEnabled switches retries on or off
	RetryEnabled bool
	// MaxRetryDelay caps a single delay; zero leaves it uncapped
	MaxRetryDelay time.Duration
}

// Decision is the outcome of a retry evaluation
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Decide determines whether the request that produced err gets another
// attempt, and how long to wait before it. meta.RetryCount is the number of
// retries already performed.
func Decide(err error, meta *Metadata, policy RetryPolicy) Decision {
	if !policy.RetryEnabled {
		return Decision{}
	}

	retries := 0
	if meta != nil {
		retries = meta.RetryCount
	}
	if retries >= policy.RetryCount {
		return Decision{}
	}

	if !IsRetryable(err) {
		return Decision{}
	}

	delay := Backoff(policy.RetryDelay, retries)
	if policy.MaxRetryDelay > 0 && delay > policy.MaxRetryDelay {
		delay = policy.MaxRetryDelay
	}
	return Decision{Retry: true, Delay: delay}
}

// IsRetryable reports whether err belongs to a class worth resending:
// failures with no response, 5xx responses, 408 and 429.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var clientErr ClientError
	if !errors.As(err, &clientErr) {
		return false
	}

	switch clientErr.Type() {
	case TransportError, TimeoutError:
		return true
	case ResponseError:
		status, _ := StatusCodeOf(err)
		return isRetryableStatus(status)
	default:
		return false
	}
}

func isRetryableStatus(code int) bool {
	if code >= 500 && code < 600 {
		return true
	}
	return code == nethttp.StatusRequestTimeout || code == nethttp.StatusTooManyRequests
}

// Backoff returns base * 2^retryCount, saturating instead of overflowing
func Backoff(base time.Duration, retryCount int) time.Duration {
	if base <= 0 {
		return 0
	}
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > maxBackoffExponent {
		retryCount = maxBackoffExponent
	}
	mult := time.Duration(1) << retryCount
	if base > time.Duration(math.MaxInt64)/mult {
		return time.Duration(math.MaxInt64)
	}
	return base * mult
}
