package observability

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultShutdownTimeout bounds the final flush of buffered telemetry.
	DefaultShutdownTimeout = 10 * time.Second
)

// Shutdown gracefully shuts down provider within timeout.
func Shutdown(provider Provider, timeout time.Duration) error {
	if provider == nil {
		return nil
	}

	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("observability shutdown failed: %w", err)
	}

	return nil
}
