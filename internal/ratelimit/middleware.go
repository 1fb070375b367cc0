package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/backend-adorn/internal/common"
)

// Config derives the limit key and thresholds for a route. A nil Key
// disables the middleware.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler rejects requests over the configured budget with 429. Limiter
// errors fail open so a Redis outage does not take checkouts down with it.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		hdr := w.Header()
		hdr.Set("X-RateLimit-Limit", strconv.Itoa(maxInt(h.Config.Max, 0)))
		hdr.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		hdr.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			hdr.Set("Retry-After", strconv.Itoa(maxInt(int(time.Until(resetAt).Seconds()), 0)))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, slow down", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
