package httputil

import (
	"errors"
	"net/http"
)

const RefreshCookieName = "refreshToken"

// ErrNoRefreshCookie means the request carries no usable refresh cookie.
var ErrNoRefreshCookie = errors.New("refresh cookie not found")

// CookieOptions controls the attributes of the refresh cookie.
type CookieOptions struct {
	// Secure marks the cookie HTTPS-only; on in production.
	Secure bool
	Domain string
}

// SetRefreshCookie stores the refresh token in an http-only, same-site strict cookie.
// No MaxAge is set: the token's own expiry bounds its lifetime.
func SetRefreshCookie(w http.ResponseWriter, token string, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		Domain:   opts.Domain,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func ClearRefreshCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetRefreshToken extracts the refresh token from its cookie
func GetRefreshToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoRefreshCookie
	}
	return cookie.Value, nil
}

// GetBearerToken extracts an access token from the Authorization header.
func GetBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:], nil
	}
	return "", errors.New("no bearer token in authorization header")
}
