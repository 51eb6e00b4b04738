package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
	"github.com/Hemant-14942/CodeArena/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options configures NewClient.
type Options struct {
	// URL is either "host:port" or a redis:// URL.
	URL      string
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection with PING.
// Unlike a cache, the session store is authoritative, so an unreachable
// server is a startup error.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	ropts, err := parseOptions(opts)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", ropts.Addr, err)
	}

	logger.Named("redis").Info("connected", zap.String("addr", ropts.Addr), zap.Int("db", ropts.DB))
	return client, nil
}

func parseOptions(opts Options) (*redis.Options, error) {
	if strings.HasPrefix(opts.URL, "redis://") || strings.HasPrefix(opts.URL, "rediss://") {
		ropts, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		if opts.Password != "" {
			ropts.Password = opts.Password
		}
		return ropts, nil
	}
	return &redis.Options{
		Addr:     opts.URL,
		Password: opts.Password,
		DB:       opts.DB,
	}, nil
}

// Store implements repository.KVStore on a go-redis client.
type Store struct {
	client redis.UniversalClient
}

var _ repository.KVStore = (*Store)(nil)

func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Get returns repository.ErrNotFound when key is absent.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrNotFound
	}
	return v, err
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	return s.client.SAdd(ctx, key, toAny(members)...).Err()
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) error {
	return s.client.SRem(ctx, key, toAny(members)...).Err()
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

// Scan walks the keyspace with SCAN so large databases are never blocked by KEYS.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func toAny(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
