// Package ratelimit provides a process-wide fixed-window rate limiter used
// to slow brute-force attempts against auth-sensitive endpoints. Counters are
// per-process; in multi-instance deployments each instance keeps its own
// windows, so the limiter is best-effort rather than a hard ceiling.
package ratelimit

import (
	"sync"
	"time"
)

// Result is the outcome of a single rate-limit check.
type Result struct {
	// Allowed reports whether the hit is admitted.
	Allowed bool

	// Remaining is the number of hits left in the current window.
	Remaining int

	// RetryAfter is the time until the window resets. Set only on
	// rejection.
	RetryAfter time.Duration
}

// bucket is one fixed window's counter.
type bucket struct {
	count     int
	expiresAt time.Time
}

// Limiter tracks fixed-window counters keyed by caller+route.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	done    chan struct{}
	closeMu sync.Once
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}
}

// Check records a hit for key and reports whether it is admitted under the
// given limit and window. The first hit in a window initializes the counter;
// a hit after the window expiry restarts it. Window edges admit up to a 2x
// burst, which is acceptable for slowing abuse.
func (l *Limiter) Check(key string, limit int, window time.Duration) Result {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.After(b.expiresAt) {
		l.buckets[key] = &bucket{count: 1, expiresAt: now.Add(window)}
		return Result{Allowed: true, Remaining: limit - 1}
	}

	if b.count >= limit {
		return Result{Allowed: false, Remaining: 0, RetryAfter: b.expiresAt.Sub(now)}
	}

	b.count++
	return Result{Allowed: true, Remaining: limit - b.count}
}

// Len returns the number of tracked buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// StartCleanup starts a background goroutine that evicts expired buckets.
// Expired buckets are also replaced lazily on access, so cleanup only bounds
// memory for keys that never return.
func (l *Limiter) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-l.done:
				return
			case <-ticker.C:
				l.cleanup()
			}
		}
	}()
}

// Stop stops the background cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.closeMu.Do(func() { close(l.done) })
}

// cleanup removes buckets whose window has passed.
func (l *Limiter) cleanup() {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		if now.After(b.expiresAt) {
			delete(l.buckets, key)
		}
	}
}
