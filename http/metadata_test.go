package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureMetadataCreatesOnce(t *testing.T) {
	first := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	req := &Request{}

	meta := EnsureMetadata(req, first)
	require.NotNil(t, meta)
	assert.Equal(t, 0, meta.RetryCount)
	assert.Equal(t, first, meta.StartTime)

	meta.Bump()
	again := EnsureMetadata(req, first.Add(time.Minute))
	assert.Same(t, meta, again)
	assert.Equal(t, first, again.StartTime)
	assert.Equal(t, 1, again.RetryCount)
}

func TestEnsureMetadataKeepsThreadedState(t *testing.T) {
	start := time.Now().Add(-time.Second)
	threaded := &Metadata{RetryCount: 2, StartTime: start}
	req := &Request{Meta: threaded}

	got := EnsureMetadata(req, time.Now())
	assert.Same(t, threaded, got)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, start, got.StartTime)
}

func TestBumpIncrementsOnly(t *testing.T) {
	start := time.Now()
	meta := &Metadata{StartTime: start}
	for i := 1; i <= 3; i++ {
		assert.Same(t, meta, meta.Bump())
		assert.Equal(t, i, meta.RetryCount)
		assert.Equal(t, start, meta.StartTime)
	}
}

func TestElapsed(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	meta := &Metadata{StartTime: start}
	assert.Equal(t, 1500*time.Millisecond, meta.Elapsed(start.Add(1500*time.Millisecond)))

	var missing *Metadata
	assert.Zero(t, missing.Elapsed(start))
	assert.Zero(t, (&Metadata{}).Elapsed(start))
}
