package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the only error the codec reports. Bad signatures, malformed
// payloads, wrong token kinds and expiry are deliberately indistinguishable.
var ErrInvalidToken = errors.New("invalid token")

// Kind tags which of the two token variants a Claims value holds.
type Kind int

const (
	KindAccess Kind = iota + 1
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Claims is the decoded form of a verified token. SessionID is only set for
// KindRefresh.
type Claims struct {
	Kind      Kind
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// tokenClaims is the wire payload: sub carries the user, jti the session.
type tokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// CodecConfig is injected at construction; the codec never reads the environment.
type CodecConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Codec signs and verifies access and refresh tokens with HS256.
type Codec struct {
	cfg CodecConfig
	now func() time.Time
}

// NewCodec returns a Codec. TTLs default to 15 minutes and 7 days.
func NewCodec(cfg CodecConfig) *Codec {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Codec{cfg: cfg, now: time.Now}
}

// RefreshTTL is the lifetime of refresh tokens and of the sessions backing them.
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

// MintAccess creates a short-lived, stateless access token for userID.
func (c *Codec) MintAccess(userID string) (string, error) {
	return c.mint(KindAccess, userID, "")
}

// MintRefresh creates a long-lived refresh token bound to one session.
func (c *Codec) MintRefresh(userID, sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("refresh token requires a session id")
	}
	return c.mint(KindRefresh, userID, sessionID)
}

// VerifyAccess validates an access token and returns its claims.
func (c *Codec) VerifyAccess(token string) (Claims, error) {
	return c.verify(KindAccess, token)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (c *Codec) VerifyRefresh(token string) (Claims, error) {
	return c.verify(KindRefresh, token)
}

func (c *Codec) mint(kind Kind, userID, sessionID string) (string, error) {
	if userID == "" {
		return "", errors.New("token requires a subject")
	}
	now := c.now()
	claims := &tokenClaims{
		Type: kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        sessionID,
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl(kind))),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret(kind))
}

func (c *Codec) verify(kind Kind, tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return c.secret(kind), nil
	}, opts...)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.Type != kind.String() || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	if kind == KindRefresh && claims.ID == "" {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{Kind: kind, UserID: claims.Subject}
	if kind == KindRefresh {
		out.SessionID = claims.ID
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (c *Codec) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return c.cfg.RefreshSecret
	}
	return c.cfg.AccessSecret
}

func (c *Codec) ttl(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.cfg.RefreshTTL
	}
	return c.cfg.AccessTTL
}
