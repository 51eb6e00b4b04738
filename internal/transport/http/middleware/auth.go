package middleware

import (
	"net/http"

	"github.com/Hemant-14942/CodeArena/internal/apperror"
	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
	"github.com/Hemant-14942/CodeArena/internal/transport/http/respond"
	"github.com/Hemant-14942/CodeArena/pkg/httputil"
)

// Authenticator verifies an access token and returns its user id.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// Protect requires a valid Bearer access token and stores its user id in
// the request context.
func Protect(auth Authenticator, f respond.Formatter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := httputil.GetBearerToken(r)
			if err != nil {
				f.Error(w, r, apperror.Unauthorized("Not authorized"))
				return
			}

			userID, err := auth.Authenticate(token)
			if err != nil {
				f.Error(w, r, err)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(userID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
