package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Hemant-14942/CodeArena/internal/apperror"
	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
	"github.com/Hemant-14942/CodeArena/internal/ratelimit"
	"github.com/Hemant-14942/CodeArena/internal/transport/http/respond"
)

const rateLimitMessage = "Too many requests from this IP, please try again later"

type RateLimitConfig struct {
	Limiter   ratelimit.Limiter
	Formatter respond.Formatter
	// OnReject is called for every rejected request, e.g. to count it.
	OnReject func()
}

// RateLimit applies a per-client-IP budget. If the limiter itself fails the
// request is let through.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := cfg.Limiter.Allow(r.Context(), ClientIPFrom(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if res.ResetIn > 0 {
				h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetIn).Unix(), 10))
			}

			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				if cfg.OnReject != nil {
					cfg.OnReject()
				}
				cfg.Formatter.Error(w, r, apperror.TooManyRequests(rateLimitMessage))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
