package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/Hemant-14942/CodeArena/internal/config"
	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
	"github.com/Hemant-14942/CodeArena/internal/service/session"
	"github.com/Hemant-14942/CodeArena/pkg/httputil"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	oauthStateCookie = "oauthState"
	oauthStatePath   = "/api/auth/google"
	oauthStateTTL    = 10 * time.Minute
)

// GoogleProvider is the OAuth round trip with Google.
type GoogleProvider interface {
	AuthCodeURL(state string) string
	Profile(ctx context.Context, code string) (*config.GoogleUser, error)
}

type googleProvider struct {
	cfg *oauth2.Config
}

// NewGoogleProvider exchanges codes with cfg and reads the userinfo endpoint.
func NewGoogleProvider(cfg *oauth2.Config) GoogleProvider {
	return googleProvider{cfg: cfg}
}

func (p googleProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p googleProvider) Profile(ctx context.Context, code string) (*config.GoogleUser, error) {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return config.GetGoogleUserInfo(ctx, p.cfg, tok)
}

type OAuthHandler struct {
	Auth        AuthFlows
	Google      GoogleProvider
	Cookies     httputil.CookieOptions
	FrontendURL string
}

func NewOAuthHandler(flows AuthFlows, google GoogleProvider, cookies httputil.CookieOptions, frontendURL string) *OAuthHandler {
	return &OAuthHandler{
		Auth:        flows,
		Google:      google,
		Cookies:     cookies,
		FrontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// GoogleLogin redirects to Google's consent screen with a fresh state bound
// to the browser by a short-lived cookie.
func (h *OAuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     oauthStatePath,
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.Google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback finishes the OAuth round trip, opens a session and sends
// the browser back to the frontend. The frontend obtains its access token
// through /refresh using the cookie set here.
func (h *OAuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Op("auth.google_callback"))

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Path:     oauthStatePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	stateCookie, err := r.Cookie(oauthStateCookie)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		log.Warn("oauth state mismatch")
		h.fail(w, r, "invalid_state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.fail(w, r, "auth_failed")
		return
	}

	profile, err := h.Google.Profile(r.Context(), code)
	if err != nil {
		log.Warn("failed to fetch google profile", logger.Err(err))
		h.fail(w, r, "user_info_failed")
		return
	}

	res, err := h.Auth.LoginWithGoogle(r.Context(), session.GoogleProfile{
		ID:            profile.ID,
		Email:         profile.Email,
		VerifiedEmail: profile.VerifiedEmail,
		Name:          profile.Name,
		Picture:       profile.Picture,
	})
	if err != nil {
		log.Warn("google login rejected", logger.Err(err))
		h.fail(w, r, "auth_failed")
		return
	}

	httputil.SetRefreshCookie(w, res.Tokens.RefreshToken, h.Cookies)
	http.Redirect(w, r, h.FrontendURL+"/", http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) fail(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.FrontendURL+"/login?error="+reason, http.StatusTemporaryRedirect)
}
