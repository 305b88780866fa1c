package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errs "github.com/matzehuels/objgraph/pkg/errors"
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key. Clear only removes keys under it,
	// so it must not be empty when Clear is used.
	Prefix string
}

// RedisStore keeps entries in Redis. Expiry uses Redis TTLs.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection with PING,
// retrying transient failures.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	s := NewRedisStoreFromClient(client, cfg.Prefix)

	err := RetryWithBackoff(ctx, func() error {
		return s.wrap(ctx, "ping", client.Ping(ctx).Err())
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client. Closing the store
// closes the client.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get retrieves a value from Redis.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := RetryWithBackoff(ctx, func() error {
		var err error
		data, err = s.client.Get(ctx, s.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return err
		}
		return s.wrap(ctx, "get", err)
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value in Redis.
func (s *RedisStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return RetryWithBackoff(ctx, func() error {
		return s.wrap(ctx, "set", s.client.Set(ctx, s.prefix+key, data, ttl).Err())
	})
}

// Delete removes a value from Redis.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return RetryWithBackoff(ctx, func() error {
		return s.wrap(ctx, "del", s.client.Del(ctx, s.prefix+key).Err())
	})
}

// Clear deletes every key under the store's prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	if s.prefix == "" {
		return errs.New(errs.ErrCodeInvalidInput, "refusing to clear redis without a key prefix")
	}

	const batch = 256
	keys := make([]string, 0, batch)
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		err := s.wrap(ctx, "del", s.client.Del(ctx, keys...).Err())
		keys = keys[:0]
		return err
	}

	iter := s.client.Scan(ctx, 0, s.prefix+"*", batch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == batch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return s.wrap(ctx, "scan", err)
	}
	return flush()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// wrap marks connection failures as retryable network errors. Context
// cancellation is returned unchanged.
func (s *RedisStore) wrap(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return Retryable(fmt.Errorf("redis %s: %w: %w", op, ErrNetwork, err))
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
