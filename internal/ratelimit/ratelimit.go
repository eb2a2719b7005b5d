// Package ratelimit caps how often a user may trigger the paid enrichment
// actions (summaries and speech).
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Decision is the answer to a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RateLimiter is an in-memory sliding window limiter.
type RateLimiter struct {
	attempts map[string][]time.Time
	mutex    sync.Mutex
	limit    int
	window   time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	// Now is replaced in tests.
	Now func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		stopCh:   make(chan struct{}),
		Now:      time.Now,
	}
	go rl.cleanup()
	return rl
}

// Allow records an attempt for key when it fits in the window. Denied
// attempts are not recorded, so a blocked user is not pushed further out.
func (rl *RateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.Now()
	valid := rl.validLocked(key, now)

	if len(valid) >= rl.limit {
		rl.attempts[key] = valid
		retry := time.Second
		if len(valid) > 0 {
			if wait := valid[0].Add(rl.window).Sub(now); wait > retry {
				retry = wait
			}
		}
		return Decision{Allowed: false, Limit: rl.limit, Remaining: 0, RetryAfter: retry}, nil
	}

	valid = append(valid, now)
	rl.attempts[key] = valid
	return Decision{Allowed: true, Limit: rl.limit, Remaining: rl.limit - len(valid)}, nil
}

// attemptCount returns the number of accepted attempts inside the window.
func (rl *RateLimiter) attemptCount(key string) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.validLocked(key, rl.Now()))
}

func (rl *RateLimiter) validLocked(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	attempts := rl.attempts[key]
	valid := make([]time.Time, 0, len(attempts)+1)
	for _, at := range attempts {
		if at.After(cutoff) {
			valid = append(valid, at)
		}
	}
	return valid
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	now := rl.Now()
	for key := range rl.attempts {
		if valid := rl.validLocked(key, now); len(valid) == 0 {
			delete(rl.attempts, key)
		} else {
			rl.attempts[key] = valid
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GetClientIP extracts the client IP from the request, preferring the
// proxy headers over the connection address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
