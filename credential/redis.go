package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the credential record under a single Redis key.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	name   string
	ttl    time.Duration
}

// NewRedisStore creates a [RedisStore] backed by the given Redis client.
// prefix and name form the key "<prefix>:<name>"; a ttl of zero keeps the
// record until it is removed.
//
//	Performance: 1 Redis command per operation.
func NewRedisStore(
	redis redis.UniversalClient,
	prefix string,
	name string,
	ttl time.Duration,
) *RedisStore {
	if prefix == "" {
		prefix = "cs"
	}
	if name == "" {
		name = "default"
	}
	return &RedisStore{
		redis:  redis,
		prefix: prefix,
		name:   name,
		ttl:    ttl,
	}
}

func (s *RedisStore) key() string {
	return s.prefix + ":" + s.name
}

// Get loads and decodes the stored record. A missing key yields [ErrNotFound].
func (s *RedisStore) Get(ctx context.Context) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return Decode(data)
}

// Set overwrites the stored record.
func (s *RedisStore) Set(ctx context.Context, rec Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Remove deletes the stored record. Removing an absent record is not an error.
func (s *RedisStore) Remove(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
