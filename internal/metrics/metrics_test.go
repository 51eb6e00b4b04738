package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthCounters(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.AuthEvent("refresh", "success")
	m.AuthEvent("refresh", "success")
	m.AuthEvent("refresh", "compromised")
	m.SessionsWiped()
	m.OrphansPruned(3)
	m.RateLimited()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authEvents.WithLabelValues("refresh", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authEvents.WithLabelValues("refresh", "compromised")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsWiped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.orphansPruned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
}

func TestObserveRequestAndHandler(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveRequest("POST", "/api/auth/refresh", 200, 12*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/auth/refresh", "200")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `http_requests_total{method="POST",route="/api/auth/refresh",status="200"} 1`)
}

func TestNew_SameRegistryTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err, "collectors are registered once per registry")
}
