package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Hemant-14942/CodeArena/internal/apperror"
	"github.com/Hemant-14942/CodeArena/internal/domain"
	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
	"github.com/Hemant-14942/CodeArena/pkg/auth"
	"github.com/Hemant-14942/CodeArena/pkg/uid"
	"go.uber.org/zap"
)

const (
	msgBadCredentials = "Credentials do not match"
	msgUnauthorized   = "Unauthorized"
	msgSessionEnded   = "Session ended, please log in again"
	msgUserExists     = "User already exists"
)

// UserRepository is the record store for identities. Find methods return
// nil, nil when no user matches.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	LinkGoogleID(ctx context.Context, userID, googleID string) error
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	CheckPasswordHash(password, hash string) bool
}

// Recorder receives auth outcomes for metrics.
type Recorder interface {
	AuthEvent(op, outcome string)
	SessionsWiped()
}

type noopRecorder struct{}

func (noopRecorder) AuthEvent(string, string) {}
func (noopRecorder) SessionsWiped()           {}

// Tokens is the result of every flow that opens or rotates a session.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	SessionID    string
}

type AuthResult struct {
	User   *domain.User
	Tokens Tokens
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Avatar   string
	Bio      string
	Links    domain.Links
}

type GoogleProfile struct {
	ID            string
	Email         string
	VerifiedEmail bool
	Name          string
	Picture       string
}

// AuthService drives register, login, refresh rotation with reuse detection,
// logout and logout-all. It keeps no per-request state of its own.
type AuthService struct {
	users    UserRepository
	hasher   PasswordHasher
	codec    *auth.Codec
	sessions *Manager
	metrics  Recorder

	dummyOnce sync.Once
	dummyHash string
}

type Option func(*AuthService)

func WithRecorder(r Recorder) Option {
	return func(s *AuthService) {
		if r != nil {
			s.metrics = r
		}
	}
}

func NewAuthService(users UserRepository, hasher PasswordHasher, codec *auth.Codec, sessions *Manager, opts ...Option) *AuthService {
	s := &AuthService{
		users:    users,
		hasher:   hasher,
		codec:    codec,
		sessions: sessions,
		metrics:  noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(logger.Layer("service"), logger.Op(op))
}

// Register creates the user and opens their first session.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	user := &domain.User{
		ID:           uid.NewUserID(),
		Username:     strings.TrimSpace(in.Username),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Avatar:       in.Avatar,
		Bio:          in.Bio,
		Links:        in.Links,
	}
	if user.Avatar == "" {
		user.Avatar = domain.DefaultAvatar
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			s.metrics.AuthEvent("register", "conflict")
			return nil, apperror.Conflict(msgUserExists)
		}
		return nil, apperror.Internal(err)
	}

	tokens, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent("register", "success")
	s.log(ctx, "auth.register").Info("user registered", logger.UserID(user.ID), logger.SessionID(tokens.SessionID))
	return &AuthResult{User: user, Tokens: *tokens}, nil
}

// Login verifies credentials and opens a new session. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if user == nil {
		s.hasher.CheckPasswordHash(password, s.dummy())
		s.metrics.AuthEvent("login", "bad_credentials")
		return nil, apperror.Unauthorized(msgBadCredentials)
	}
	if !s.hasher.CheckPasswordHash(password, user.PasswordHash) {
		s.metrics.AuthEvent("login", "bad_credentials")
		return nil, apperror.Unauthorized(msgBadCredentials)
	}

	tokens, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent("login", "success")
	s.log(ctx, "auth.login").Info("user logged in", logger.UserID(user.ID), logger.SessionID(tokens.SessionID))
	return &AuthResult{User: user, Tokens: *tokens}, nil
}

// LoginWithGoogle resolves a Google profile to a user, linking or creating
// one as needed, then opens a session exactly like Login.
func (s *AuthService) LoginWithGoogle(ctx context.Context, p GoogleProfile) (*AuthResult, error) {
	if p.ID == "" || p.Email == "" || !p.VerifiedEmail {
		s.metrics.AuthEvent("google", "rejected")
		return nil, apperror.Unauthorized("Google account email is not verified")
	}

	user, err := s.resolveGoogleUser(ctx, p)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent("google", "success")
	s.log(ctx, "auth.google").Info("user logged in with google", logger.UserID(user.ID), logger.SessionID(tokens.SessionID))
	return &AuthResult{User: user, Tokens: *tokens}, nil
}

func (s *AuthService) resolveGoogleUser(ctx context.Context, p GoogleProfile) (*domain.User, error) {
	user, err := s.users.FindByGoogleID(ctx, p.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if user != nil {
		return user, nil
	}

	email := normalizeEmail(p.Email)
	user, err = s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if user != nil {
		if err := s.users.LinkGoogleID(ctx, user.ID, p.ID); err != nil {
			if errors.Is(err, domain.ErrDuplicateUser) {
				return nil, apperror.Conflict("Google account is linked to another user")
			}
			return nil, apperror.Internal(err)
		}
		user.GoogleID = p.ID
		return user, nil
	}

	id := uid.NewUserID()
	user = &domain.User{
		ID:       id,
		Username: googleUsername(email, id),
		Email:    email,
		Avatar:   p.Picture,
		GoogleID: p.ID,
	}
	if user.Avatar == "" {
		user.Avatar = domain.DefaultAvatar
	}
	// PasswordHash stays empty: bcrypt never matches it, so password login is impossible.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, apperror.Conflict(msgUserExists)
		}
		return nil, apperror.Internal(err)
	}
	return user, nil
}

// Refresh rotates a refresh token. The presented token must match the hash
// stored for its session; a verified token that does not match proves the
// token was replayed, and every session of the owner is revoked.
func (s *AuthService) Refresh(ctx context.Context, token string) (*Tokens, error) {
	log := s.log(ctx, "auth.refresh")

	claims, err := s.codec.VerifyRefresh(token)
	if err != nil {
		s.metrics.AuthEvent("refresh", "invalid")
		return nil, apperror.Unauthorized(msgUnauthorized)
	}
	log = log.With(logger.UserID(claims.UserID), logger.SessionID(claims.SessionID))

	stored, found, err := s.sessions.GetSessionHash(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		s.metrics.AuthEvent("refresh", "unavailable")
		log.Warn("session lookup failed", logger.Err(err))
		return nil, apperror.Unavailable(err)
	}

	if !found || !auth.VerifyTokenHash(token, stored) {
		s.metrics.AuthEvent("refresh", "compromised")
		log.Warn("refresh token reuse detected, revoking all sessions", zap.Bool("record_found", found))
		if err := s.sessions.DeleteAllSessions(ctx, claims.UserID); err != nil {
			log.Error("failed to revoke sessions after reuse", logger.Err(err))
		} else {
			s.metrics.SessionsWiped()
		}
		return nil, apperror.SessionCompromised()
	}

	if err := s.sessions.DeleteSession(ctx, claims.UserID, claims.SessionID); err != nil {
		log.Warn("failed to delete rotated session", logger.Err(err))
		if s.stillHeld(ctx, claims.UserID, claims.SessionID, token) {
			s.metrics.AuthEvent("refresh", "unavailable")
			return nil, apperror.Unavailable(err)
		}
		s.metrics.AuthEvent("refresh", "failed_after_revoke")
		return nil, apperror.Unauthorized(msgSessionEnded)
	}

	// The old token is spent from here on; failures must not be retryable.
	tokens, err := s.issueSession(ctx, claims.UserID)
	if err != nil {
		s.metrics.AuthEvent("refresh", "failed_after_revoke")
		log.Warn("failed to open rotated session; old session already revoked", logger.Err(err))
		return nil, apperror.Unauthorized(msgSessionEnded)
	}

	s.metrics.AuthEvent("refresh", "success")
	log.Debug("session rotated", zap.String("new_session_id", tokens.SessionID))
	return tokens, nil
}

// stillHeld reports whether the session record is known to still hold the
// hash of token. A failed lookup counts as not held.
func (s *AuthService) stillHeld(ctx context.Context, userID, sessionID, token string) bool {
	stored, found, err := s.sessions.GetSessionHash(ctx, userID, sessionID)
	return err == nil && found && auth.VerifyTokenHash(token, stored)
}

// Logout revokes the session named by the refresh token. With no token, or
// a token that does not verify, there is nothing provable to revoke and the
// call succeeds. userID is the authenticated caller; when set, a token owned
// by someone else is ignored.
func (s *AuthService) Logout(ctx context.Context, userID, token string) error {
	if token == "" {
		s.metrics.AuthEvent("logout", "noop")
		return nil
	}
	claims, err := s.codec.VerifyRefresh(token)
	if err != nil {
		s.metrics.AuthEvent("logout", "noop")
		return nil
	}
	if userID != "" && claims.UserID != userID {
		s.metrics.AuthEvent("logout", "mismatch")
		s.log(ctx, "auth.logout").Warn("refresh cookie belongs to another user, ignoring",
			logger.UserID(userID), zap.String("cookie_user_id", claims.UserID))
		return nil
	}

	if err := s.sessions.DeleteSession(ctx, claims.UserID, claims.SessionID); err != nil {
		s.metrics.AuthEvent("logout", "unavailable")
		return apperror.Unavailable(err)
	}

	s.metrics.AuthEvent("logout", "success")
	s.log(ctx, "auth.logout").Info("session revoked", logger.UserID(claims.UserID), logger.SessionID(claims.SessionID))
	return nil
}

// LogoutAll revokes every session of the refresh token's owner. No token is a
// no-op; a token that does not verify is rejected. As with Logout, a token
// owned by someone other than userID is ignored.
func (s *AuthService) LogoutAll(ctx context.Context, userID, token string) error {
	if token == "" {
		s.metrics.AuthEvent("logout_all", "noop")
		return nil
	}
	claims, err := s.codec.VerifyRefresh(token)
	if err != nil {
		s.metrics.AuthEvent("logout_all", "invalid")
		return apperror.Unauthorized(msgUnauthorized)
	}
	if userID != "" && claims.UserID != userID {
		s.metrics.AuthEvent("logout_all", "mismatch")
		s.log(ctx, "auth.logout_all").Warn("refresh cookie belongs to another user, ignoring",
			logger.UserID(userID), zap.String("cookie_user_id", claims.UserID))
		return nil
	}

	if err := s.RevokeAll(ctx, claims.UserID); err != nil {
		s.metrics.AuthEvent("logout_all", "unavailable")
		return err
	}
	s.metrics.AuthEvent("logout_all", "success")
	return nil
}

// RevokeAll revokes every session of userID.
func (s *AuthService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.sessions.DeleteAllSessions(ctx, userID); err != nil {
		return apperror.Unavailable(err)
	}
	s.metrics.SessionsWiped()
	s.log(ctx, "auth.revoke_all").Info("all sessions revoked", logger.UserID(userID))
	return nil
}

// ActiveSessions lists userID's live sessions. currentSessionID, when set,
// marks the caller's own session.
func (s *AuthService) ActiveSessions(ctx context.Context, userID, currentSessionID string) ([]domain.SessionInfo, error) {
	ids, err := s.sessions.ListSessions(ctx, userID)
	if err != nil {
		return nil, apperror.Unavailable(err)
	}
	out := make([]domain.SessionInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.SessionInfo{SessionID: id, Current: id == currentSessionID})
	}
	return out, nil
}

// SessionIDFromRefresh returns the session id carried by a valid refresh
// token, or "" when the token is absent or invalid.
func (s *AuthService) SessionIDFromRefresh(token string) string {
	claims, err := s.codec.VerifyRefresh(token)
	if err != nil {
		return ""
	}
	return claims.SessionID
}

// Authenticate verifies an access token and returns its user id.
func (s *AuthService) Authenticate(token string) (string, error) {
	claims, err := s.codec.VerifyAccess(token)
	if err != nil {
		return "", apperror.Unauthorized("Invalid or expired token")
	}
	return claims.UserID, nil
}

// User loads a user by id.
func (s *AuthService) User(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}
	return user, nil
}

// issueSession opens a fresh session: new id, new token pair, stored hash.
func (s *AuthService) issueSession(ctx context.Context, userID string) (*Tokens, error) {
	sessionID := uid.NewSessionID()

	access, err := s.codec.MintAccess(userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	refresh, err := s.codec.MintRefresh(userID, sessionID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if err := s.sessions.SaveSession(ctx, userID, sessionID, auth.HashToken(refresh), s.codec.RefreshTTL()); err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, apperror.Unavailable(err)
		}
		return nil, apperror.Internal(err)
	}

	return &Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       userID,
		SessionID:    sessionID,
	}, nil
}

// dummy is a real bcrypt hash used to equalise login timing for unknown emails.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.HashPassword("codearena-timing-equaliser")
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// googleUsername derives a unique-enough username from the email local part.
func googleUsername(email, id string) string {
	local, _, _ := strings.Cut(email, "@")
	if len(local) < 3 {
		local = "user"
	}
	return local + "_" + strings.ReplaceAll(id, "-", "")[:6]
}
