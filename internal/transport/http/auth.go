package http

import (
	"context"
	"net/http"

	"github.com/Hemant-14942/CodeArena/internal/apperror"
	"github.com/Hemant-14942/CodeArena/internal/domain"
	"github.com/Hemant-14942/CodeArena/internal/service/session"
	"github.com/Hemant-14942/CodeArena/internal/transport/http/middleware"
	"github.com/Hemant-14942/CodeArena/internal/transport/http/respond"
	"github.com/Hemant-14942/CodeArena/pkg/httputil"
)

// AuthFlows is the part of session.AuthService the handlers drive.
type AuthFlows interface {
	Register(ctx context.Context, in session.RegisterInput) (*session.AuthResult, error)
	Login(ctx context.Context, email, password string) (*session.AuthResult, error)
	LoginWithGoogle(ctx context.Context, p session.GoogleProfile) (*session.AuthResult, error)
	Refresh(ctx context.Context, token string) (*session.Tokens, error)
	Logout(ctx context.Context, userID, token string) error
	LogoutAll(ctx context.Context, userID, token string) error
	ActiveSessions(ctx context.Context, userID, currentSessionID string) ([]domain.SessionInfo, error)
	SessionIDFromRefresh(token string) string
	User(ctx context.Context, id string) (*domain.User, error)
}

type AuthHandler struct {
	Auth             AuthFlows
	Errors           respond.Formatter
	Cookies          httputil.CookieOptions
	ImageKitEndpoint string
}

func NewAuthHandler(flows AuthFlows, f respond.Formatter, cookies httputil.CookieOptions, imageKitEndpoint string) *AuthHandler {
	return &AuthHandler{
		Auth:             flows,
		Errors:           f,
		Cookies:          cookies,
		ImageKitEndpoint: imageKitEndpoint,
	}
}

type userData struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	Email    string        `json:"email"`
	IsAdmin  bool          `json:"isAdmin"`
	Avatar   string        `json:"avatar,omitempty"`
	Bio      string        `json:"bio,omitempty"`
	Links    *domain.Links `json:"links,omitempty"`
}

type authResponse struct {
	Status      string   `json:"status"`
	AccessToken string   `json:"accessToken"`
	Data        userData `json:"data"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	if err := req.validate(h.ImageKitEndpoint); err != nil {
		h.Errors.Error(w, r, err)
		return
	}

	res, err := h.Auth.Register(r.Context(), session.RegisterInput{
		Username: deref(req.Username),
		Email:    deref(req.Email),
		Password: deref(req.Password),
		Avatar:   deref(req.Avatar),
		Bio:      deref(req.Bio),
		Links: domain.Links{
			GitHub:   deref(req.GitHub),
			LinkedIn: deref(req.LinkedIn),
			Website:  deref(req.Website),
		},
	})
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}

	httputil.SetRefreshCookie(w, res.Tokens.RefreshToken, h.Cookies)
	respond.JSON(w, http.StatusCreated, authResponse{
		Status:      "success",
		AccessToken: res.Tokens.AccessToken,
		Data: userData{
			ID:       res.User.ID,
			Username: res.User.Username,
			Email:    res.User.Email,
			IsAdmin:  res.User.IsAdmin,
		},
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		h.Errors.Error(w, r, err)
		return
	}

	res, err := h.Auth.Login(r.Context(), deref(req.Email), deref(req.Password))
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}

	httputil.SetRefreshCookie(w, res.Tokens.RefreshToken, h.Cookies)
	respond.JSON(w, http.StatusOK, authResponse{
		Status:      "success",
		AccessToken: res.Tokens.AccessToken,
		Data: userData{
			ID:       res.User.ID,
			Username: res.User.Username,
			Email:    res.User.Email,
			IsAdmin:  res.User.IsAdmin,
			Avatar:   res.User.Avatar,
		},
	})
}

// Refresh rotates the refresh cookie. Whenever the presented token is
// rejected the cookie is cleared so the browser stops replaying it.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, _ := httputil.GetRefreshToken(r)

	tokens, err := h.Auth.Refresh(r.Context(), token)
	if err != nil {
		if apperror.IsCode(err, apperror.CodeUnauthorized) || apperror.IsCode(err, apperror.CodeSessionCompromised) {
			httputil.ClearRefreshCookie(w, h.Cookies)
		}
		h.Errors.Error(w, r, err)
		return
	}

	httputil.SetRefreshCookie(w, tokens.RefreshToken, h.Cookies)
	respond.JSON(w, http.StatusOK, map[string]string{
		"status":      "success",
		"accessToken": tokens.AccessToken,
	})
}

// Logout revokes the session behind the refresh cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := httputil.GetRefreshToken(r)
	if err := h.Auth.Logout(r.Context(), middleware.UserIDFrom(r.Context()), token); err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	if token != "" {
		httputil.ClearRefreshCookie(w, h.Cookies)
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes every session of the refresh cookie's owner.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	token, _ := httputil.GetRefreshToken(r)
	if err := h.Auth.LogoutAll(r.Context(), middleware.UserIDFrom(r.Context()), token); err != nil {
		h.Errors.Error(w, r, err)
		return
	}
	if token != "" {
		httputil.ClearRefreshCookie(w, h.Cookies)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r.Context())

	var current string
	if token, err := httputil.GetRefreshToken(r); err == nil {
		current = h.Auth.SessionIDFromRefresh(token)
	}

	sessions, err := h.Auth.ActiveSessions(r.Context(), userID, current)
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data": map[string]any{
			"count":    len(sessions),
			"sessions": sessions,
		},
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Auth.User(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		h.Errors.Error(w, r, err)
		return
	}

	data := userData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
		Avatar:   user.Avatar,
		Bio:      user.Bio,
	}
	if user.Links != (domain.Links{}) {
		links := user.Links
		data.Links = &links
	}
	respond.JSON(w, http.StatusOK, map[string]any{"status": "success", "data": data})
}
