package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// rateLimitEntry tracks request counts for one client within a window.
type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// fixedWindow is an in-memory fixed-window counter keyed by client.
type fixedWindow struct {
	mu          sync.Mutex
	entries     map[string]*rateLimitEntry
	maxRequests int
	window      time.Duration
	now         func() time.Time
	lastPrune   time.Time
}

func newFixedWindow(maxRequests int, window time.Duration, now func() time.Time) *fixedWindow {
	return &fixedWindow{
		entries:     make(map[string]*rateLimitEntry),
		maxRequests: maxRequests,
		window:      window,
		now:         now,
		lastPrune:   now(),
	}
}

// allow counts a request for key and reports whether it is within the limit.
func (l *fixedWindow) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > l.window*2 {
		for k, e := range l.entries {
			if now.Sub(e.windowStart) > l.window {
				delete(l.entries, k)
			}
		}
		l.lastPrune = now
	}

	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) > l.window {
		l.entries[key] = &rateLimitEntry{count: 1, windowStart: now}
		return true
	}
	e.count++
	return e.count <= l.maxRequests
}

// RateLimit returns middleware allowing maxRequests per window for each
// client IP. Excess requests get 429. Stale entries are pruned inline.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	l := newFixedWindow(maxRequests, window, time.Now)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", retryAfter(window))
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   "Too Many Requests",
					"message": "Rate limit exceeded. Please try again later.",
				})
			}
			return next(c)
		}
	}
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
