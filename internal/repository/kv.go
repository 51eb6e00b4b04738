// Package repository holds the storage contracts shared by the concrete
// stores under it.
package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by KVStore.Get when the key is absent or expired.
var ErrNotFound = errors.New("key not found")

// KVStore is the key-value surface the session manager needs: plain keys
// with TTL plus string sets used as per-user indexes.
type KVStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Scan returns every key matching a glob pattern such as "user_sessions:*".
	Scan(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
}
