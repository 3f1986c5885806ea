package http

import "time"

// Metadata tracks the retry state of one logical request. It is created on
// the first attempt and shared by every retry of that request.
type Metadata struct {
	RetryCount int
	StartTime  time.Time
}

// EnsureMetadata attaches metadata to req when absent and returns it.
// Existing metadata is returned untouched, so retries keep their StartTime.
func EnsureMetadata(req *Request, now time.Time) *Metadata {
	if req.Meta == nil {
		req.Meta = &Metadata{StartTime: now}
	}
	return req.Meta
}

// Bump records one more retry attempt
func (m *Metadata) Bump() *Metadata {
	m.RetryCount++
	return m
}

// Elapsed returns the time spent since the first attempt
func (m *Metadata) Elapsed(now time.Time) time.Duration {
	if m == nil || m.StartTime.IsZero() {
		return 0
	}
	return now.Sub(m.StartTime)
}
