package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Hemant-14942/CodeArena/internal/config"
	"github.com/Hemant-14942/CodeArena/internal/domain"
	"github.com/Hemant-14942/CodeArena/internal/metrics"
	"github.com/Hemant-14942/CodeArena/internal/ratelimit"
	"github.com/Hemant-14942/CodeArena/internal/repository/memory"
	"github.com/Hemant-14942/CodeArena/internal/service/session"
	"github.com/Hemant-14942/CodeArena/internal/transport/http/respond"
	"github.com/Hemant-14942/CodeArena/pkg/auth"
	"github.com/Hemant-14942/CodeArena/pkg/httputil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*domain.User{}}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return domain.ErrDuplicateUser
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) find(match func(*domain.User) bool) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Email == email }), nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.ID == id }), nil
}

func (m *memUsers) FindByGoogleID(_ context.Context, googleID string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.GoogleID != "" && u.GoogleID == googleID }), nil
}

func (m *memUsers) LinkGoogleID(_ context.Context, userID, googleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.GoogleID = googleID
	}
	return nil
}

type fakeGoogle struct {
	profile *config.GoogleUser
	err     error
	codes   []string
}

func (f *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.google.test/o/oauth2/auth?state=" + state
}

func (f *fakeGoogle) Profile(_ context.Context, code string) (*config.GoogleUser, error) {
	f.codes = append(f.codes, code)
	return f.profile, f.err
}

// switchableStore is a memory store whose writes can be made to fail.
type switchableStore struct {
	*memory.Store
	setsDown atomic.Bool
}

func (s *switchableStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.setsDown.Load() {
		return errors.New("connection refused")
	}
	return s.Store.Set(ctx, key, value, ttl)
}

type testEnv struct {
	handler http.Handler
	store   *switchableStore
	users   *memUsers
	google  *fakeGoogle
	metrics *metrics.Metrics
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	store := &switchableStore{Store: memory.New()}
	users := newMemUsers()
	codec := auth.NewCodec(auth.CodecConfig{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "codearena",
	})
	m, err := metrics.New(nil)
	require.NoError(t, err)

	svc := session.NewAuthService(users, auth.NewHasher(bcrypt.MinCost), codec,
		session.NewManager(store, session.ManagerConfig{Timeout: time.Second}),
		session.WithRecorder(m))

	errs := respond.Formatter{Production: true}
	cookies := httputil.CookieOptions{}
	google := &fakeGoogle{}

	handler := NewRouter(RouterConfig{
		Auth:           NewAuthHandler(svc, errs, cookies, "https://ik.imagekit.io/codearena"),
		OAuth:          NewOAuthHandler(svc, google, cookies, "http://localhost:3000/"),
		Authenticator:  svc,
		Errors:         errs,
		Logger:         zap.NewNop(),
		Metrics:        m,
		Limiter:        ratelimit.NewMemoryLimiter(1000, time.Minute),
		AllowedOrigins: []string{"http://localhost:3000"},
		BodyLimit:      10 * 1024,
		Health:         map[string]Pinger{"sessions": store},
	})

	return &testEnv{handler: handler, store: store, users: users, google: google, metrics: m}
}

type reqOpt func(*http.Request)

func withCookie(token string) reqOpt {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: httputil.RefreshCookieName, Value: token})
	}
}

func withBearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (e *testEnv) do(method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// refreshCookie returns the refresh cookie set by the response, or nil.
func refreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == httputil.RefreshCookieName {
			return c
		}
	}
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(strings.NewReader(rec.Body.String())).Decode(&out))
	return out
}

// registerUser registers a user and returns the access and refresh tokens.
func (e *testEnv) registerUser(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := e.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": strings.Split(email, "@")[0],
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cookie := refreshCookie(rec)
	require.NotNil(t, cookie)
	return decode(t, rec)["accessToken"].(string), cookie.Value
}
