// Package cache implements the Redis side-caches used by the auth core:
// the token revocation cache, the cache-aside role cache and the user-data
// cache. None of them is a source of truth; losing any of them degrades to
// hitting the database (or forcing reauthentication), never to a wrong
// answer.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Store.Get when a key does not exist.
var ErrMiss = errors.New("cache miss")

// Store is the thin slice of Redis the caches need. Production code wraps
// *redis.Client; tests substitute an in-memory map.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type redisStore struct{ rdb *redis.Client }

// NewStore wraps a Redis client in the Store interface.
func NewStore(rdb *redis.Client) Store { return redisStore{rdb: rdb} }

func (s redisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (s redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s redisStore) Del(ctx context.Context, keys ...string) error {
	return s.rdb.Del(ctx, keys...).Err()
}

func (s redisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	return n > 0, err
}
