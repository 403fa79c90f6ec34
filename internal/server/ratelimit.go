package server

import (
	"sync"
	"time"
)

// rateLimiter is a fixed-window in-process limiter keyed by an opaque
// string. Good enough for the public quote surface, which runs behind a
// single process; it is not shared state.
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string]*rateWindow
}

type rateWindow struct {
	count    int
	windowAt time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string]*rateWindow),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.hits[key]
	if !ok || now.Sub(w.windowAt) >= r.window {
		r.hits[key] = &rateWindow{count: 1, windowAt: now}
		r.sweepLocked(now)
		return true
	}

	if w.count >= r.limit {
		return false
	}
	w.count++
	return true
}

// sweepLocked drops stale windows so the map does not grow unbounded.
func (r *rateLimiter) sweepLocked(now time.Time) {
	if len(r.hits) < 4096 {
		return
	}
	for key, w := range r.hits {
		if now.Sub(w.windowAt) >= r.window {
			delete(r.hits, key)
		}
	}
}
