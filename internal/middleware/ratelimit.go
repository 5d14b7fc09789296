package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// rateWindow tracks request counts for a single IP within a time window.
type rateWindow struct {
	count   int
	started time.Time
}

// RateLimit returns middleware that caps requests per client IP to
// maxRequests within the given window. Used on the login, signup,
// password-reset, One Tap, and avatar-upload endpoints to slow down
// brute force and abuse. State is in-memory per process.
//
// When the cap is exceeded the request fails with 429 and a Retry-After
// header; the global error handler turns that into the error page or
// JSON depending on the caller.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	var mu sync.Mutex
	windows := make(map[string]*rateWindow)

	// Evict stale windows periodically so idle IPs don't accumulate.
	go func() {
		for {
			time.Sleep(time.Minute)
			mu.Lock()
			now := time.Now()
			for ip, w := range windows {
				if now.Sub(w.started) > window*2 {
					delete(windows, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			now := time.Now()

			mu.Lock()
			w, exists := windows[ip]
			if !exists || now.Sub(w.started) > window {
				windows[ip] = &rateWindow{count: 1, started: now}
				mu.Unlock()
				return next(c)
			}

			w.count++
			if w.count > maxRequests {
				retryAfter := w.started.Add(window).Sub(now)
				mu.Unlock()
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				return echo.NewHTTPError(http.StatusTooManyRequests,
					"You're making too many requests. Please slow down.")
			}
			mu.Unlock()
			return next(c)
		}
	}
}
