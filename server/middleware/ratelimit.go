package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/livescribe/errors"
)

// RateLimitConfig bounds how often one caller may hit a route group.
type RateLimitConfig struct {
	// Requests is the maximum number of requests allowed per key within
	// one Window. Defaults to 60.
	Requests int
	// Window is the sliding window length. Defaults to one minute.
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request. Defaults to
	// the client IP.
	KeyFunc func(*gin.Context) string
}

// RateLimit returns middleware that applies per-key sliding-window rate
// limiting. Requests over the limit receive a 429 with a retryable
// error body.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Requests <= 0 {
		cfg.Requests = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}

	rl := &rateLimiter{
		seen:   make(map[string][]time.Time),
		limit:  cfg.Requests,
		window: cfg.Window,
	}
	go rl.sweep()

	return func(c *gin.Context) {
		if !rl.allow(cfg.KeyFunc(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				errors.RateLimited().ToResponse())
			return
		}
		c.Next()
	}
}

type rateLimiter struct {
	mu     sync.Mutex
	seen   map[string][]time.Time
	limit  int
	window time.Duration
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.window)
	recent := pruneBefore(rl.seen[key], cutoff)
	if len(recent) >= rl.limit {
		rl.seen[key] = recent
		return false
	}
	rl.seen[key] = append(recent, time.Now())
	return true
}

// sweepInterval is how often idle keys are dropped from the window map.
const sweepInterval = 5 * time.Minute

// sweep drops idle keys so the map does not grow with every client ever
// seen.
func (rl *rateLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.window)
		for key, times := range rl.seen {
			recent := pruneBefore(times, cutoff)
			if len(recent) == 0 {
				delete(rl.seen, key)
			} else {
				rl.seen[key] = recent
			}
		}
		rl.mu.Unlock()
	}
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	var kept []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
