package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
	"github.com/Hemant-14942/CodeArena/internal/repository"
)

const (
	refreshKeyPrefix = "refresh:"
	indexKeyPrefix   = "user_sessions:"

	defaultStoreTimeout = 2 * time.Second
	defaultScanTimeout  = time.Minute
)

var (
	// ErrStoreUnavailable wraps every store failure other than "not found".
	// Callers must treat it as "unknown", never as "absent".
	ErrStoreUnavailable = errors.New("session store unavailable")

	ErrInvalidSessionKey = errors.New("invalid session key component")
)

// RefreshKey is where the hash of a session's current refresh token lives.
func RefreshKey(userID, sessionID string) string {
	return refreshKeyPrefix + userID + ":" + sessionID
}

// IndexKey is the set of session ids belonging to userID.
func IndexKey(userID string) string {
	return indexKeyPrefix + userID
}

type ManagerConfig struct {
	// Timeout bounds every individual store call. Default 2s.
	Timeout time.Duration
	// ScanTimeout bounds the keyspace walk in PruneAll, which grows with the
	// number of users. Default 1m, never less than Timeout.
	ScanTimeout time.Duration
}

// Manager owns the session key namespace. Each session is a TTL'd record
// holding a refresh token hash plus a membership in its owner's index set.
//
// The record is always written before the index and deleted before the
// index entry. The two writes are not atomic: a crash between them leaves
// an index entry without a record, which every reader ignores and the
// janitor prunes.
type Manager struct {
	store       repository.KVStore
	timeout     time.Duration
	scanTimeout time.Duration
}

func NewManager(store repository.KVStore, cfg ManagerConfig) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultStoreTimeout
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = defaultScanTimeout
	}
	if cfg.ScanTimeout < cfg.Timeout {
		cfg.ScanTimeout = cfg.Timeout
	}
	return &Manager{store: store, timeout: cfg.Timeout, scanTimeout: cfg.ScanTimeout}
}

func validKeyPart(s string) bool {
	return s != "" && !strings.ContainsAny(s, ":*?[]")
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func (m *Manager) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return m.callWithTimeout(ctx, m.timeout, op, fn)
}

func (m *Manager) callWithTimeout(ctx context.Context, d time.Duration, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	if err := fn(ctx); err != nil {
		return unavailable(op, err)
	}
	return nil
}

// SaveSession stores the hash for a new session and indexes it under userID.
func (m *Manager) SaveSession(ctx context.Context, userID, sessionID, hash string, ttl time.Duration) error {
	if !validKeyPart(userID) || !validKeyPart(sessionID) {
		return ErrInvalidSessionKey
	}
	if hash == "" || ttl <= 0 {
		return fmt.Errorf("session: save requires a hash and a positive ttl")
	}

	if err := m.call(ctx, "set record", func(ctx context.Context) error {
		return m.store.Set(ctx, RefreshKey(userID, sessionID), hash, ttl)
	}); err != nil {
		return err
	}
	if err := m.call(ctx, "index add", func(ctx context.Context) error {
		return m.store.SAdd(ctx, IndexKey(userID), sessionID)
	}); err != nil {
		return err
	}
	return m.call(ctx, "index expire", func(ctx context.Context) error {
		return m.store.Expire(ctx, IndexKey(userID), ttl)
	})
}

// GetSessionHash returns the stored hash and true, or "", false when the
// session is absent or expired. Store failures are returned as errors.
func (m *Manager) GetSessionHash(ctx context.Context, userID, sessionID string) (string, bool, error) {
	if !validKeyPart(userID) || !validKeyPart(sessionID) {
		return "", false, nil
	}

	var hash string
	var found bool
	err := m.call(ctx, "get record", func(ctx context.Context) error {
		v, err := m.store.Get(ctx, RefreshKey(userID, sessionID))
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		hash, found = v, true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return hash, found, nil
}

// DeleteSession revokes one session. Deleting an absent session is not an
// error. An error means the record may still exist; once the record is gone
// a failed index removal only leaves an orphan entry and is not reported.
func (m *Manager) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if !validKeyPart(userID) || !validKeyPart(sessionID) {
		return nil
	}
	if err := m.call(ctx, "delete record", func(ctx context.Context) error {
		return m.store.Del(ctx, RefreshKey(userID, sessionID))
	}); err != nil {
		return err
	}
	if err := m.call(ctx, "index remove", func(ctx context.Context) error {
		return m.store.SRem(ctx, IndexKey(userID), sessionID)
	}); err != nil {
		logger.From(ctx).Warn("session index entry left for the janitor",
			logger.Layer("session"), logger.UserID(userID), logger.SessionID(sessionID), logger.Err(err))
	}
	return nil
}

// DeleteAllSessions revokes every session of userID and drops the index.
// Sessions of other users are never touched.
func (m *Manager) DeleteAllSessions(ctx context.Context, userID string) error {
	if !validKeyPart(userID) {
		return nil
	}

	members, err := m.members(ctx, userID)
	if err != nil {
		return err
	}

	if len(members) > 0 {
		keys := make([]string, 0, len(members))
		for _, sid := range members {
			keys = append(keys, RefreshKey(userID, sid))
		}
		if err := m.call(ctx, "delete records", func(ctx context.Context) error {
			return m.store.Del(ctx, keys...)
		}); err != nil {
			return err
		}
	}

	return m.call(ctx, "delete index", func(ctx context.Context) error {
		return m.store.Del(ctx, IndexKey(userID))
	})
}

// ListSessions returns the ids of userID's sessions that still have a record.
func (m *Manager) ListSessions(ctx context.Context, userID string) ([]string, error) {
	if !validKeyPart(userID) {
		return nil, nil
	}
	members, err := m.members(ctx, userID)
	if err != nil {
		return nil, err
	}

	live := make([]string, 0, len(members))
	for _, sid := range members {
		ok, err := m.exists(ctx, RefreshKey(userID, sid))
		if err != nil {
			return nil, err
		}
		if ok {
			live = append(live, sid)
		}
	}
	return live, nil
}

// PruneOrphans removes index members of userID whose record has expired or
// was lost between two non-atomic writes. It returns how many were removed.
func (m *Manager) PruneOrphans(ctx context.Context, userID string) (int, error) {
	members, err := m.members(ctx, userID)
	if err != nil {
		return 0, err
	}

	var orphans []string
	for _, sid := range members {
		ok, err := m.exists(ctx, RefreshKey(userID, sid))
		if err != nil {
			return 0, err
		}
		if !ok {
			orphans = append(orphans, sid)
		}
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	if err := m.call(ctx, "index prune", func(ctx context.Context) error {
		return m.store.SRem(ctx, IndexKey(userID), orphans...)
	}); err != nil {
		return 0, err
	}
	return len(orphans), nil
}

// PruneAll runs PruneOrphans for every user index in the store.
func (m *Manager) PruneAll(ctx context.Context) (int, error) {
	var keys []string
	if err := m.callWithTimeout(ctx, m.scanTimeout, "scan indexes", func(ctx context.Context) error {
		var err error
		keys, err = m.store.Scan(ctx, indexKeyPrefix+"*")
		return err
	}); err != nil {
		return 0, err
	}

	total := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := m.PruneOrphans(ctx, strings.TrimPrefix(key, indexKeyPrefix))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Ping reports whether the store is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.call(ctx, "ping", m.store.Ping)
}

func (m *Manager) members(ctx context.Context, userID string) ([]string, error) {
	var members []string
	err := m.call(ctx, "index members", func(ctx context.Context) error {
		var err error
		members, err = m.store.SMembers(ctx, IndexKey(userID))
		return err
	})
	return members, err
}

func (m *Manager) exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := m.call(ctx, "exists", func(ctx context.Context) error {
		var err error
		ok, err = m.store.Exists(ctx, key)
		return err
	})
	return ok, err
}
