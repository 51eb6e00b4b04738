// Package respond writes JSON bodies and renders every error through one
// formatter so clients see a single error shape.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/Hemant-14942/CodeArena/internal/apperror"
	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
)

const maskedMessage = "Something went very wrong!"

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Status  string                `json:"status"`
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Errors  []apperror.FieldError `json:"errors,omitempty"`
	Detail  string                `json:"detail,omitempty"`
	Stack   string                `json:"stack,omitempty"`
}

// Formatter renders errors. Outside production, unexpected errors expose
// their cause and stack.
type Formatter struct {
	Production bool
}

func (f Formatter) Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.From(err)
	log := logger.From(r.Context())

	body := errorBody{
		Status:  appErr.StatusText(),
		Code:    appErr.Code,
		Message: appErr.Message,
		Errors:  appErr.Fields,
	}

	switch {
	case !appErr.Operational:
		log.Error("unhandled error", logger.Status(appErr.Status), logger.Err(appErr.Unwrap()))
		if f.Production {
			body.Message = maskedMessage
		} else {
			body.Detail = appErr.Error()
			body.Stack = string(appErr.Stack())
		}
	case appErr.Status >= http.StatusInternalServerError:
		log.Warn("dependency failure", logger.Status(appErr.Status), logger.Err(appErr.Unwrap()))
	}

	if appErr.Retryable() && w.Header().Get("Retry-After") == "" {
		w.Header().Set("Retry-After", "1")
	}
	JSON(w, appErr.Status, body)
}
