package tools

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter implements a sliding window rate limiter for tool executions,
// keyed by task id. A runaway agent loop cannot hammer external CLIs past
// the configured budget.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	max     int
	window  time.Duration
}

// NewRateLimiter creates a limiter allowing max executions per window.
// Returns nil (disabled) when max <= 0.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Hour
	}
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		max:     max,
		window:  window,
	}
}

// Allow checks whether an execution is allowed for the given key.
// Returns nil if allowed, or an error describing the limit.
func (rl *RateLimiter) Allow(key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	entries := rl.windows[key]
	start := 0
	for start < len(entries) && entries[start].Before(cutoff) {
		start++
	}
	entries = entries[start:]

	if len(entries) >= rl.max {
		return fmt.Errorf("tool rate limit exceeded: %d executions per %s for task %s", rl.max, rl.window, key)
	}

	rl.windows[key] = append(entries, now)
	return nil
}

// Cleanup removes stale entries older than the window. Call periodically to
// prevent memory growth.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.window)
	for key, entries := range rl.windows {
		start := 0
		for start < len(entries) && entries[start].Before(cutoff) {
			start++
		}
		if start == len(entries) {
			delete(rl.windows, key)
		} else {
			rl.windows[key] = entries[start:]
		}
	}
}
