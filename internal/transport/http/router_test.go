package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	env := newEnv(t)

	rec := env.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "API is running...", decode(t, rec)["message"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestNotFound(t *testing.T) {
	env := newEnv(t)

	rec := env.do(http.MethodGet, "/api/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "Can't find /api/nope on this server!", body["message"])
}

func TestHealthz(t *testing.T) {
	env := newEnv(t)

	rec := env.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newEnv(t)
	env.registerUser(t, "alice@example.com")

	rec := env.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `auth_events_total{op="register",outcome="success"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/api/auth/register"`)
}

func TestBodyLimit(t *testing.T) {
	env := newEnv(t)

	big := `{"username":"` + strings.Repeat("a", 11*1024) + `"}`
	rec := env.do(http.MethodPost, "/api/auth/register", big)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Request body too large")
}

func TestCORSPreflight(t *testing.T) {
	env := newEnv(t)

	rec := env.do(http.MethodOptions, "/api/auth/login", nil, func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:3000")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
