package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-bricks-http/logger"
)

// fakeClock records backoff waits instead of sleeping
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// syncBuffer lets concurrent requests share one log buffer
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(level string) (logger.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return logger.NewWithWriter(buf, level, nil), buf
}

// logEntries returns the decoded log lines carrying the given message
func logEntries(t *testing.T, buf *syncBuffer, message string) []map[string]any {
	t.Helper()
	var entries []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(buf.String()))
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		if entry["message"] == message {
			entries = append(entries, entry)
		}
	}
	return entries
}

// recordingTransport answers with the given statuses in order, repeating the
// last one, and records every dispatched request.
type recordingTransport struct {
	mu       sync.Mutex
	statuses []int
	errs     []error
	requests []Request
	metas    []*Metadata
}

func (rt *recordingTransport) Send(ctx context.Context, req *Request) (*RawResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	n := len(rt.requests)
	snapshot := *req
	snapshot.Headers = req.Headers.Clone()
	snapshot.Meta = &Metadata{RetryCount: req.Meta.RetryCount, StartTime: req.Meta.StartTime}
	rt.requests = append(rt.requests, snapshot)
	rt.metas = append(rt.metas, req.Meta)

	if n < len(rt.errs) && rt.errs[n] != nil {
		return nil, rt.errs[n]
	}

	status := 200
	if len(rt.statuses) > 0 {
		status = rt.statuses[min(n, len(rt.statuses)-1)]
	}
	return &RawResponse{
		StatusCode: status,
		Headers:    map[string][]string{"Content-Type": {"application/json"}},
		Body:       []byte(`{"attempt":` + strconv.Itoa(n+1) + `}`),
	}, nil
}

func (rt *recordingTransport) Attempts() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.requests)
}

func (rt *recordingTransport) Request(i int) Request {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.requests[i]
}
