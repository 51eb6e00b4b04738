// Package memory is an in-process repository.KVStore for development and
// tests. State is lost on restart, so it never backs production sessions.
package memory

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/Hemant-14942/CodeArena/internal/repository"
	gocache "github.com/patrickmn/go-cache"
)

type Store struct {
	// mu serialises set mutations; go-cache only guards single Get/Set calls.
	mu sync.Mutex
	c  *gocache.Cache
}

var _ repository.KVStore = (*Store)(nil)

func New() *Store {
	return &Store{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.c.Set(key, value, expiration(ttl))
	return nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", repository.ErrNotFound
	}
	str, ok := v.(string)
	if !ok {
		return "", repository.ErrNotFound
	}
	return str, nil
}

func (s *Store) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.c.Delete(k)
	}
	return nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.c.Get(key)
	return ok, nil
}

func (s *Store) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, exp := s.set(key)
	next := make(map[string]struct{}, len(set)+len(members))
	for m := range set {
		next[m] = struct{}{}
	}
	for _, m := range members {
		next[m] = struct{}{}
	}
	s.c.Set(key, next, exp)
	return nil
}

func (s *Store) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, exp := s.set(key)
	if set == nil {
		return nil
	}
	next := make(map[string]struct{}, len(set))
	for m := range set {
		next[m] = struct{}{}
	}
	for _, m := range members {
		delete(next, m)
	}
	if len(next) == 0 {
		s.c.Delete(key)
		return nil
	}
	s.c.Set(key, next, exp)
	return nil
}

func (s *Store) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, _ := s.set(key)
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.c.Get(key)
	if !ok {
		return nil
	}
	s.c.Set(key, v, expiration(ttl))
	return nil
}

func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	var keys []string
	for k := range s.c.Items() {
		if ok, err := path.Match(pattern, k); err != nil {
			return nil, err
		} else if ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *Store) Ping(context.Context) error { return nil }

// set returns the set stored at key and the expiration to preserve when
// writing it back. Sets are replaced, never mutated in place.
func (s *Store) set(key string) (map[string]struct{}, time.Duration) {
	v, expiresAt, ok := s.c.GetWithExpiration(key)
	if !ok {
		return nil, gocache.NoExpiration
	}
	set, ok := v.(map[string]struct{})
	if !ok {
		return nil, gocache.NoExpiration
	}
	if expiresAt.IsZero() {
		return set, gocache.NoExpiration
	}
	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return nil, gocache.NoExpiration
	}
	return set, remaining
}
