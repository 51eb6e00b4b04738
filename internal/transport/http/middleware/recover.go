package middleware

import (
	"fmt"
	"net/http"

	"github.com/Hemant-14942/CodeArena/internal/apperror"
	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
	"github.com/Hemant-14942/CodeArena/internal/transport/http/respond"
	"go.uber.org/zap"
)

// Recover turns a handler panic into a 500 rendered by the error formatter.
func Recover(f respond.Formatter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.From(r.Context()).Error("panic recovered", logger.Op("recover"), zap.Any("panic", rec))
				f.Error(w, r, apperror.Internal(fmt.Errorf("panic: %v", rec)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
