package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/octobees/usersapi/internal/config"
)

// WriteRateLimiter applies a token bucket per identified caller to the routes
// it wraps. Requests without an identity pass through; the handler rejects
// them with 401 before any write happens.
func WriteRateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Interval <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return next(c)
			}
		}
	}

	limiters := newKeyedLimiter(cfg, time.Now)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFromContext(c)
			if !ok {
				return next(c)
			}
			if !limiters.allow("user:" + strconv.FormatInt(identity.UserID, 10)) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   "Too Many Requests",
					"message": "write rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyedLimiter holds one token bucket per key. Buckets idle for a full
// interval are refilled anyway, so they are dropped on the next sweep.
type keyedLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	every     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func newKeyedLimiter(cfg config.RateLimitConfig, now func() time.Time) *keyedLimiter {
	perRequest := cfg.Interval / time.Duration(cfg.Requests)
	if perRequest <= 0 {
		perRequest = time.Second
	}
	return &keyedLimiter{
		entries:   make(map[string]*limiterEntry),
		every:     rate.Every(perRequest),
		burst:     cfg.Requests,
		idle:      cfg.Interval,
		now:       now,
		lastSweep: now(),
	}
}

func (k *keyedLimiter) allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if now.Sub(k.lastSweep) >= k.idle {
		for stale, e := range k.entries {
			if now.Sub(e.lastSeen) >= k.idle {
				delete(k.entries, stale)
			}
		}
		k.lastSweep = now
	}

	e, ok := k.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(k.every, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (k *keyedLimiter) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
