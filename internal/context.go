package internal

import (
	"context"
	"time"
)

// DependencyTimeout bounds a single round trip to Postgres or Redis.
const DependencyTimeout = 5 * time.Second

// WithTimeout returns a context with timeout, defaulting to DependencyTimeout if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = DependencyTimeout
	}
	return context.WithTimeout(ctx, duration)
}
