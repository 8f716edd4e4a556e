// Package redis persists session records in Redis.
//
// Keys are written without expiry; the session record has no lifetime of its
// own and is only removed on sign-out.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofinances/sessionkit/storage"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis failure other than a missing key.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store is a Redis-backed storage.Storage.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a [Store] on top of client. prefix, when non-empty, is
// prepended to every key with a ':' separator so several devices can share
// one instance.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Get retrieves the value under key.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return data, nil
}

// Set stores value under key with no expiry.
//
//	Performance: 1 Redis SET.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.redis.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Remove deletes key. DEL on a missing key reports zero and is not an error.
//
//	Performance: 1 Redis DEL.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	if s == nil || s.redis == nil {
		return nil
	}
	return s.redis.Close()
}
