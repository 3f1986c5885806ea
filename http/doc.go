// Package http provides a REST client that retries failed requests with
// exponential backoff, tracks per-request retry state, merges per-call
// options over client defaults and classifies every failure.
//
// Retries
//   - Controlled by RetryPolicy (RetryCount, RetryDelay, RetryEnabled), set on
//     the Builder and optionally replaced per call through RequestConfig.Retry.
//   - Retried: failures with no response (connection refused, DNS, timeout,
//     reset), 5xx responses, 408 and 429.
//   - Not retried: any other status, interceptor faults, validation errors
//     and context cancellation.
//   - RetryCount = 0 disables retries for that request.
//
// Backoff Strategy
//   - Retry n (counted from 0) waits RetryDelay * 2^n: d, 2d, 4d, ...
//   - MaxRetryDelay optionally caps a single wait.
//   - Waits end early when the request context is done.
//
// Interceptors
//   - Request interceptors run before every attempt, after the request
//     metadata has been attached.
//   - Response interceptors see every accepted (2xx/3xx) response.
//   - Error interceptors see every failed attempt before the retry decision.
//   - An error returned by any interceptor is surfaced immediately and never
//     retried.
//
// Failures reach the caller as a *RequestError wrapping the last classified
// error, after being logged with the retry count and elapsed time.
package http
