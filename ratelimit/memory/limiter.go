package memorylimiter

import (
	"sync"
	"time"
)

// Limiter is an in-memory sliding-window rate limiter keyed by caller.
// The authorize adapters use it to bound repeated authorization attempts
// from a single client, which blunts key-id and claim enumeration probing.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string][]int64
}

// New constructs a limiter allowing at most limit calls per key per window.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string][]int64),
	}
}

// Allow records an attempt for the key and reports whether it is within the
// limit. Expired entries are pruned on each call and empty buckets removed
// to avoid unbounded memory growth.
func (l *Limiter) Allow(key string) bool {
	if l == nil || key == "" {
		return true
	}

	nowMs := time.Now().UnixNano() / 1e6
	windowStart := nowMs - l.window.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.buckets[key]
	pruneIdx := 0
	for pruneIdx < len(ts) && ts[pruneIdx] < windowStart {
		pruneIdx++
	}
	if pruneIdx > 0 {
		ts = ts[pruneIdx:]
	}

	if len(ts) >= l.limit {
		// Deny without recording this attempt.
		if len(ts) == 0 {
			delete(l.buckets, key)
		} else {
			l.buckets[key] = ts
		}
		return false
	}

	l.buckets[key] = append(ts, nowMs)
	return true
}
