package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type redisAttemptStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisAttemptStore connects to Redis and returns a shared attempt store
// for multi-instance deployments. Atomicity per identity comes from Redis
// single-command semantics (INCR, SET EX); TTLs replace the sweep.
func NewRedisAttemptStore(addr string) (AttemptStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		MaxRetries: 3,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisAttemptStore{client: client, ctx: ctx}, nil
}

func attemptsKey(identity string) string { return "login:attempts:" + identity }
func blockKey(identity string) string    { return "login:block:" + identity }

// CheckBlocked relies on the TTL of the block key; Redis server time is
// authoritative, the now argument is unused here.
func (s *redisAttemptStore) CheckBlocked(identity string, _ time.Time) (bool, int, error) {
	ttl, err := s.client.TTL(s.ctx, blockKey(identity)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis ttl: %w", err)
	}
	if ttl <= 0 {
		// Key absent or without expiry: not blocked
		return false, 0, nil
	}
	return true, int(ttl.Seconds() + 0.5), nil
}

func (s *redisAttemptStore) RecordFailure(identity string, _ time.Time, max int, lockout time.Duration) (bool, int, error) {
	count, err := s.client.Incr(s.ctx, attemptsKey(identity)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis incr: %w", err)
	}

	// Keep the counter from lingering forever for identities that never lock out
	s.client.Expire(s.ctx, attemptsKey(identity), lockout+time.Minute)

	if int(count) >= max {
		if err := s.client.Set(s.ctx, blockKey(identity), 1, lockout).Err(); err != nil {
			return false, 0, fmt.Errorf("redis set block: %w", err)
		}
		if err := s.client.Del(s.ctx, attemptsKey(identity)).Err(); err != nil {
			return false, 0, fmt.Errorf("redis del attempts: %w", err)
		}
		return true, max, nil
	}

	return false, int(count), nil
}

func (s *redisAttemptStore) Clear(identity string) error {
	if err := s.client.Del(s.ctx, attemptsKey(identity), blockKey(identity)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Sweep is a no-op: key TTLs already expire stale records.
func (s *redisAttemptStore) Sweep(_ time.Time, _ time.Duration) error {
	return nil
}
