package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Hemant-14942/CodeArena/internal/domain"
	"github.com/Hemant-14942/CodeArena/internal/repository"
	"github.com/Hemant-14942/CodeArena/internal/repository/memory"
	"github.com/Hemant-14942/CodeArena/pkg/auth"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errBoom = errors.New("connection refused")

// flakyStore fails the selected operations and delegates the rest.
// "del_lost" applies a Del and then reports a failure, like a reply lost
// after the server ran the command.
type flakyStore struct {
	repository.KVStore

	mu        sync.Mutex
	fail      map[string]bool
	scanDelay time.Duration
}

func newFlakyStore() *flakyStore {
	return &flakyStore{KVStore: memory.New(), fail: map[string]bool{}}
}

func (f *flakyStore) breakOp(ops ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range ops {
		f.fail[op] = true
	}
}

func (f *flakyStore) heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = map[string]bool{}
}

func (f *flakyStore) failing(op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[op] || f.fail["*"]
}

func (f *flakyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.failing("set") {
		return errBoom
	}
	return f.KVStore.Set(ctx, key, value, ttl)
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, error) {
	if f.failing("get") {
		return "", errBoom
	}
	return f.KVStore.Get(ctx, key)
}

func (f *flakyStore) Del(ctx context.Context, keys ...string) error {
	if f.failing("del") {
		return errBoom
	}
	if f.failing("del_lost") {
		_ = f.KVStore.Del(ctx, keys...)
		return errBoom
	}
	return f.KVStore.Del(ctx, keys...)
}

func (f *flakyStore) SRem(ctx context.Context, key string, members ...string) error {
	if f.failing("srem") {
		return errBoom
	}
	return f.KVStore.SRem(ctx, key, members...)
}

// Scan waits scanDelay, or until ctx is done, before delegating.
func (f *flakyStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	delay := f.scanDelay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.KVStore.Scan(ctx, pattern)
}

func (f *flakyStore) SAdd(ctx context.Context, key string, members ...string) error {
	if f.failing("sadd") {
		return errBoom
	}
	return f.KVStore.SAdd(ctx, key, members...)
}

func (f *flakyStore) SMembers(ctx context.Context, key string) ([]string, error) {
	if f.failing("smembers") {
		return nil, errBoom
	}
	return f.KVStore.SMembers(ctx, key)
}

// memUsers is an in-memory UserRepository.
type memUsers struct {
	mu   sync.Mutex
	byID map[string]*domain.User
	fail error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.User{}}
}

func (r *memUsers) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email || existing.Username == u.Username {
			return domain.ErrDuplicateUser
		}
	}
	cp := *u
	cp.CreatedAt = time.Now()
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	for _, u := range r.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *memUsers) FindByGoogleID(_ context.Context, googleID string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.GoogleID != "" && u.GoogleID == googleID })
}

func (r *memUsers) LinkGoogleID(_ context.Context, userID, googleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return errors.New("not found")
	}
	u.GoogleID = googleID
	return nil
}

// countingRecorder records metrics calls.
type countingRecorder struct {
	mu     sync.Mutex
	events map[string]int
	wipes  int
}

func (c *countingRecorder) AuthEvent(op, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.events == nil {
		c.events = map[string]int{}
	}
	c.events[op+"/"+outcome]++
}

func (c *countingRecorder) SessionsWiped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wipes++
}

func (c *countingRecorder) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[key]
}

type fixture struct {
	svc     *AuthService
	mgr     *Manager
	store   *flakyStore
	users   *memUsers
	codec   *auth.Codec
	metrics *countingRecorder
}

func newFixture() *fixture {
	store := newFlakyStore()
	mgr := NewManager(store, ManagerConfig{Timeout: time.Second})
	codec := auth.NewCodec(auth.CodecConfig{
		AccessSecret:  []byte("test-access"),
		RefreshSecret: []byte("test-refresh"),
	})
	users := newMemUsers()
	rec := &countingRecorder{}
	svc := NewAuthService(users, auth.NewHasher(bcrypt.MinCost), codec, mgr, WithRecorder(rec))
	return &fixture{svc: svc, mgr: mgr, store: store, users: users, codec: codec, metrics: rec}
}

func (f *fixture) register(t *testing.T, username, email string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    email,
		Password: "secret123",
	})
	require.NoError(t, err)
	return res
}
