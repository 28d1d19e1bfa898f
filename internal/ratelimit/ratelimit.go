// Package ratelimit implements the per-site token bucket that throttles all
// outbound fetches. One bucket exists per site harvest and is the only state
// shared read-write between that site's concurrent tasks.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is the refill period for production buckets: the descriptor's
// RatePerMinute tokens become available every 60 seconds.
const DefaultWindow = time.Minute

// minPollInterval bounds how often an empty bucket is re-checked so blocked
// callers never busy-spin.
const minPollInterval = time.Second

// TokenBucket refills to capacity once per window rather than dripping
// tokens continuously. Acquire never fails; it only delays (or honors
// context cancellation).
type TokenBucket struct {
	mu         sync.Mutex
	tokens     int
	capacity   int
	window     time.Duration
	lastRefill time.Time
	poll       time.Duration
}

// NewTokenBucket creates a full bucket. The window is injectable so tests can
// exercise refill boundaries without real minutes passing; production callers
// pass DefaultWindow.
func NewTokenBucket(capacity int, window time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	if window <= 0 {
		window = DefaultWindow
	}
	poll := minPollInterval
	if window < poll {
		poll = window
	}
	return &TokenBucket{
		tokens:     capacity,
		capacity:   capacity,
		window:     window,
		lastRefill: time.Now(),
		poll:       poll,
	}
}

// Acquire blocks until a token is available, consumes exactly one, and
// returns. The counter is only ever touched under the mutex so two callers
// can never spend the same token.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	for {
		b.mu.Lock()
		if time.Since(b.lastRefill) >= b.window {
			b.tokens = b.capacity
			b.lastRefill = time.Now()
		}
		if b.tokens > 0 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.poll):
		}
	}
}

// Tokens reports the current token count. Intended for logging and tests.
func (b *TokenBucket) Tokens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}
