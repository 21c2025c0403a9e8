package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when the underlying redis connection fails.
var ErrUnavailable = errors.New("cache store unavailable")

// Store is a namespaced view over a shared redis client. All keys are
// prefixed before they hit redis; callers only ever see unprefixed keys.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a Store scoped to the given key prefix.
func New(redisClient redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Prefix returns the namespace prefix this store applies to every key.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Set stores value under key. A zero ttl stores the key without expiry.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %q: %v", ErrUnavailable, s.key(key), err)
	}
	return nil
}

// Get returns the value stored under key. The second return value reports
// whether the key was present; an absent or expired key is not an error.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.redis.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %q: %v", ErrUnavailable, s.key(key), err)
	}
	return value, true, nil
}

// RemainingTTL returns the remaining lifetime of key. The second return
// value is false when the key is absent or has no expiry set.
func (s *Store) RemainingTTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := s.redis.TTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("%w: ttl %q: %v", ErrUnavailable, s.key(key), err)
	}
	// redis reports -2 for a missing key and -1 for a key without expiry.
	if ttl < 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

// Delete removes key and returns the number of keys removed (0 or 1).
func (s *Store) Delete(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.Del(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: del %q: %v", ErrUnavailable, s.key(key), err)
	}
	return count, nil
}

// DeleteAll removes every key under this store's prefix and returns the
// number of keys removed.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	iter := s.redis.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count, err := s.redis.Del(ctx, iter.Val()).Result()
		if err != nil {
			return deleted, fmt.Errorf("%w: del %q: %v", ErrUnavailable, iter.Val(), err)
		}
		deleted += count
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("%w: scan %q: %v", ErrUnavailable, s.prefix, err)
	}
	return deleted, nil
}
