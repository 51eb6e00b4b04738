package middleware

import (
	"context"
	"net/http"

	"github.com/Hemant-14942/CodeArena/pkg/useragent"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
	clientIPKey
)

func WithRequestIDValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFrom returns the user authenticated by Protect, or "".
func UserIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// ClientIPFrom returns the address stored by ClientIP, or the peer address
// when that middleware did not run.
func ClientIPFrom(r *http.Request) string {
	if v, ok := r.Context().Value(clientIPKey).(string); ok && v != "" {
		return v
	}
	return useragent.ExtractIPAddress(r)
}
