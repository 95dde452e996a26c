package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/jwtgate/core"
)

// RedisStore is a Redis implementation of the challenge store. Expiry is
// delegated to key TTLs and consumption uses GETDEL, so it needs Redis 6.2+.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "jwtgate:challenge:",
	}
}

// Save stores the answer under the session id with the remaining lifetime as TTL
func (s *RedisStore) Save(ctx context.Context, challenge core.Challenge) error {
	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, s.prefix+challenge.SessionID, challenge.Answer, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save challenge: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}

	return nil
}

// Consume atomically reads and deletes the challenge
func (s *RedisStore) Consume(ctx context.Context, sessionID string) (core.Challenge, bool, error) {
	answer, err := s.client.GetDel(ctx, s.prefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.Challenge{}, false, nil
		}
		return core.Challenge{}, false, fmt.Errorf("failed to consume challenge: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}

	return core.Challenge{SessionID: sessionID, Answer: answer}, true, nil
}

// List scans pending challenges. Only meant for debugging.
func (s *RedisStore) List(ctx context.Context) ([]core.Challenge, error) {
	var out []core.Challenge
	now := time.Now()

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		answer, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read challenge: %w", errors.Join(core.ErrStoreOperationFailed, err))
		}

		ttl, err := s.client.PTTL(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read challenge ttl: %w", errors.Join(core.ErrStoreOperationFailed, err))
		}

		out = append(out, core.Challenge{
			SessionID: strings.TrimPrefix(key, s.prefix),
			Answer:    answer,
			ExpiresAt: now.Add(ttl),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan challenges: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}

	return out, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
