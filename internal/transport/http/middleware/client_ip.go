package middleware

import (
	"context"
	"net/http"
)

// ClientIP resolves the client address once per request with resolve and
// stores it for the logging and rate limit middlewares.
func ClientIP(resolve func(*http.Request) string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolve(r)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIPKey, ip)))
		})
	}
}
