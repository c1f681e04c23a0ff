package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/templui/contentops/internal/apperr"
	"github.com/templui/contentops/internal/ui"
)

// rateLimitRecord is the per-client counter of the current window
type rateLimitRecord struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window counter per client key.
// State is process-local: every instance of a scaled-out deployment counts separately.
type RateLimiter struct {
	mu      sync.Mutex
	records map[string]*rateLimitRecord
	limit   int           // Max requests allowed per window
	window  time.Duration // Length of a window
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a new rate limiter and starts its janitor
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := newRateLimiter(limit, window, time.Now)
	go rl.cleanupLoop()
	return rl
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		records: make(map[string]*rateLimitRecord),
		limit:   limit,
		window:  window,
		now:     now,
		stop:    make(chan struct{}),
	}
}

// Allow counts a request for key and reports whether it is within the limit.
// The request that opens a new window counts as its first.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rec, ok := rl.records[key]
	if !ok || now.After(rec.resetAt) {
		rl.records[key] = &rateLimitRecord{count: 1, resetAt: now.Add(rl.window)}
		return true
	}

	if rec.count >= rl.limit {
		return false
	}
	rec.count++
	return true
}

// RetryAfter returns how long key has to wait for its window to reset.
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.records[key]
	if !ok {
		return 0
	}
	return max(rec.resetAt.Sub(rl.now()), 0)
}

// Stop ends the janitor goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// cleanupLoop periodically removes expired windows to prevent memory leak
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, rec := range rl.records {
		if now.After(rec.resetAt) {
			delete(rl.records, key)
		}
	}
}

// RateLimit rejects requests over the limiter's cap with 429 and a JSON message.
func RateLimit(limiter *RateLimiter) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			if !limiter.Allow(ip) {
				slog.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
				)
				retry := int(limiter.RetryAfter(ip).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				ui.Error(w, r, apperr.RateLimited("Too many upload attempts. Please try again later."))
				return
			}

			next(w, r)
		}
	}
}
