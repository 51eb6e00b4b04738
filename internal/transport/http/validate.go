package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/Hemant-14942/CodeArena/internal/apperror"
)

type registerRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
	GitHub   *string `json:"github"`
	LinkedIn *string `json:"linkedin"`
	Website  *string `json:"website"`
}

type loginRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// fieldErrors collects validation failures in field order.
type fieldErrors []apperror.FieldError

func (fe *fieldErrors) add(field, msg string) {
	*fe = append(*fe, apperror.FieldError{Field: field, Message: msg})
}

func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return apperror.Validation(fe)
}

func (fe *fieldErrors) minLen(field string, v *string, n int) {
	switch {
	case v == nil:
		fe.add(field, "Required")
	case utf8.RuneCountInString(*v) < n:
		fe.add(field, fmt.Sprintf("String must contain at least %d character(s)", n))
	}
}

func (fe *fieldErrors) email(field string, v *string) {
	if v == nil {
		fe.add(field, "Required")
		return
	}
	if !isEmail(*v) {
		fe.add(field, "Invalid email")
	}
}

func (fe *fieldErrors) optionalURL(field string, v *string) {
	if v != nil && !isURL(*v) {
		fe.add(field, "Invalid url")
	}
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	_, domain, ok := strings.Cut(s, "@")
	return ok && strings.Contains(domain, ".")
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// validate checks the registration body. imageKitEndpoint, when set, is the
// only accepted avatar prefix.
func (req *registerRequest) validate(imageKitEndpoint string) error {
	var fe fieldErrors
	fe.minLen("username", req.Username, 3)
	fe.email("email", req.Email)
	fe.minLen("password", req.Password, 6)

	fe.optionalURL("avatar", req.Avatar)
	if req.Avatar != nil && imageKitEndpoint != "" && isURL(*req.Avatar) &&
		!strings.HasPrefix(*req.Avatar, imageKitEndpoint) {
		fe.add("avatar", "Invalid avatar URL source")
	}
	if req.Bio != nil && utf8.RuneCountInString(*req.Bio) > 160 {
		fe.add("bio", "String must contain at most 160 character(s)")
	}
	fe.optionalURL("github", req.GitHub)
	fe.optionalURL("linkedin", req.LinkedIn)
	fe.optionalURL("website", req.Website)
	return fe.err()
}

func (req *loginRequest) validate() error {
	var fe fieldErrors
	fe.email("email", req.Email)
	fe.minLen("password", req.Password, 1)
	return fe.err()
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return apperror.Validation([]apperror.FieldError{{Field: "body", Message: "Request body too large"}})
	case errors.Is(err, io.EOF):
		return apperror.Validation([]apperror.FieldError{{Field: "body", Message: "Request body is required"}})
	default:
		return apperror.Validation([]apperror.FieldError{{Field: "body", Message: "Request body must be valid JSON"}})
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
