package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Hemant-14942/CodeArena/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, f Formatter, err error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestOperationalErrorShownAsIs(t *testing.T) {
	rec, body := render(t, Formatter{Production: true}, apperror.SessionCompromised())

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "session_compromised", body["code"])
	assert.Equal(t, "Session compromised", body["message"])
}

func TestValidationListsFields(t *testing.T) {
	rec, body := render(t, Formatter{}, apperror.Validation([]apperror.FieldError{{Field: "password", Message: "Required"}}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields := body["errors"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "password", fields[0].(map[string]any)["field"])
}

func TestUnexpectedErrorMaskedInProduction(t *testing.T) {
	rec, body := render(t, Formatter{Production: true}, errors.New("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, maskedMessage, body["message"])
	assert.NotContains(t, body, "stack")
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestUnexpectedErrorDetailedInDevelopment(t *testing.T) {
	_, body := render(t, Formatter{}, errors.New("pq: relation does not exist"))

	assert.Contains(t, body["detail"], "relation does not exist")
	assert.NotEmpty(t, body["stack"])
}

func TestUnavailableSetsRetryAfter(t *testing.T) {
	rec, body := render(t, Formatter{Production: true}, apperror.Unavailable(errors.New("redis: connection refused")))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "service_unavailable", body["code"])
	assert.NotContains(t, rec.Body.String(), "redis")
}

func TestRetryAfterIsNotOverwritten(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("Retry-After", "42")
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Formatter{}.Error(rec, req, apperror.TooManyRequests("slow down"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
}
