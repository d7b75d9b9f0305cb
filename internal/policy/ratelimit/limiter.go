// Package ratelimit spaces outbound oracle calls with a token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/TheoCtla/SmartQA/internal/metrics"
)

// Config holds pacer configuration.
type Config struct {
	// Interval is the minimum spacing between two calls. Zero disables spacing.
	Interval time.Duration
}

// Limiter spaces calls to one upstream and provides ctx-aware pauses.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter. The first call is admitted immediately.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &Limiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call may start, respecting ctx.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	// Tokens that were already available cost nothing worth recording.
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObservePacingDelay(waited)
	}
	return nil
}

// Pause sleeps for d unless ctx ends first.
func (l *Limiter) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("pause: %w", ctx.Err())
	case <-timer.C:
		metrics.ObservePacingDelay(d)
		return nil
	}
}
