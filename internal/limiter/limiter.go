package limiter

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/logpipe-io/logpipe/internal/response"
)

// WindowLimiter counts requests per client identity over a fixed window.
// Once an identity reaches the ceiling, further requests are rejected with
// 429 until the window rolls over.
//
// Allow has the same shape as echo's middleware.RateLimiterStore, so the
// limiter can also be plugged into the stock rate-limiter middleware; the
// bundled Middleware is used instead because it adds the X-RateLimit
// response headers.
type WindowLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*windowState
	now     func() time.Time
}

type windowState struct {
	count int
	start time.Time
}

// New returns a limiter allowing limit requests per identity per window.
func New(limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*windowState),
		now:     time.Now,
	}
}

// Allow records one request for identifier and reports whether it is within
// the ceiling. The rollover check and the increment happen under one lock,
// so bursts near a window boundary cannot be miscounted.
func (l *WindowLimiter) Allow(identifier string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.state(identifier)
	if state.count >= l.limit {
		return false, nil
	}
	state.count++
	return true, nil
}

// Remaining returns how many requests identifier may still make in the
// current window. Never negative.
func (l *WindowLimiter) Remaining(identifier string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if remaining := l.limit - l.state(identifier).count; remaining > 0 {
		return remaining
	}
	return 0
}

// state returns the current window for identifier, starting a fresh one if
// the previous window has elapsed. Caller holds the lock.
func (l *WindowLimiter) state(identifier string) *windowState {
	now := l.now()
	state, ok := l.clients[identifier]
	if !ok || now.Sub(state.start) >= l.window {
		state = &windowState{start: now}
		l.clients[identifier] = state
	}
	return state
}

// Middleware applies admission control before any other handling. Identity
// is c.RealIP(); the server configures echo's direct-IP extractor, so
// spoofed forwarding headers cannot open a fresh window. Rejected requests
// get the generic 429 body and never reach token validation or the store.
func (l *WindowLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identifier := c.RealIP()
			allowed, _ := l.Allow(identifier)

			header := c.Response().Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
			header.Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(identifier)))

			if !allowed {
				return response.TooManyRequests(c)
			}
			return next(c)
		}
	}
}
