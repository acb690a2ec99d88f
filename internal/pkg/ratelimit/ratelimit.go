package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is an in-memory sliding-window limiter keyed by caller.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

// Decision is the outcome of Take for one key.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the wait until the oldest counted hit leaves the window,
// rounded up to whole seconds.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	return (wait + time.Second - 1).Truncate(time.Second)
}

func New(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (rl *RateLimiter) Limit() int { return rl.limit }

func (rl *RateLimiter) Window() time.Duration { return rl.window }

// Take counts a request against key when the window has room.
func (rl *RateLimiter) Take(key string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	live := rl.prune(key, now)
	if len(live) >= rl.limit {
		return rl.decide(live, now, false)
	}

	live = append(live, now)
	rl.hits[key] = live
	return rl.decide(live, now, true)
}

// Allow reports whether a request for key fits in the window.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.Take(key).Allowed
}

// Peek reports the current state for key without counting a request.
func (rl *RateLimiter) Peek(key string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	live := rl.prune(key, now)
	return rl.decide(live, now, len(live) < rl.limit)
}

func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.hits, key)
}

// Cleanup drops keys with no hits inside the window.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key := range rl.hits {
		rl.prune(key, now)
	}
}

// StartCleanup runs Cleanup on every tick until ctx is cancelled
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}

// prune keeps the hits for key that are still inside the window. Callers
// hold mu.
func (rl *RateLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	hits := rl.hits[key]

	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	live := hits[i:]
	if len(live) == 0 {
		delete(rl.hits, key)
		return nil
	}
	rl.hits[key] = live
	return live
}

func (rl *RateLimiter) decide(live []time.Time, now time.Time, allowed bool) Decision {
	reset := now.Add(rl.window)
	if len(live) > 0 {
		reset = live[0].Add(rl.window)
	}
	return Decision{
		Allowed:   allowed,
		Remaining: max(rl.limit-len(live), 0),
		ResetAt:   reset,
	}
}
