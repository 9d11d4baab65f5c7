package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker is a named mutex with TTL shared across worker instances. A
// failed acquire means another instance holds the tick; callers treat it
// as a skip, not an error.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
	IsHeld(ctx context.Context, name string) (bool, error)
}

type redisLock struct {
	client *redis.Client
	token  string
}

func NewLocker(client *RedisClient) Locker {
	return &redisLock{
		client: client.GetClient(),
		// One token per process instance, so a lock is only released by
		// the instance that acquired it.
		token: uuid.New().String(),
	}
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

func (l *redisLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(name), l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return ok, nil
}

func (l *redisLock) Release(ctx context.Context, name string) error {
	holder, err := l.client.Get(ctx, lockKey(name)).Result()
	if err == redis.Nil {
		return nil // already expired
	}
	if err != nil {
		return fmt.Errorf("failed to inspect lock %s: %w", name, err)
	}
	if holder != l.token {
		return nil // someone else holds it now, leave it alone
	}
	if err := l.client.Del(ctx, lockKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}

func (l *redisLock) IsHeld(ctx context.Context, name string) (bool, error) {
	holder, err := l.client.Get(ctx, lockKey(name)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return holder == l.token, nil
}
