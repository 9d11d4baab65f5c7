package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore tracks the per-faction war cooldown restriction as a keyed
// faction -> timestamp mapping. The key TTL is the restriction window, so
// expired cooldowns vanish without a sweeper.
type CooldownStore interface {
	Set(ctx context.Context, factionID string, d time.Duration) error
	Active(ctx context.Context, factionID string) (bool, time.Duration, error)
	Clear(ctx context.Context, factionID string) error
}

type cooldownStore struct {
	client *redis.Client
}

func NewCooldownStore(client *RedisClient) CooldownStore {
	return &cooldownStore{client: client.GetClient()}
}

func cooldownKey(factionID string) string {
	return fmt.Sprintf("war:cooldown:%s", factionID)
}

func (s *cooldownStore) Set(ctx context.Context, factionID string, d time.Duration) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.client.Set(ctx, cooldownKey(factionID), now, d).Err(); err != nil {
		return fmt.Errorf("failed to set cooldown for %s: %w", factionID, err)
	}
	return nil
}

func (s *cooldownStore) Active(ctx context.Context, factionID string) (bool, time.Duration, error) {
	ttl, err := s.client.TTL(ctx, cooldownKey(factionID)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check cooldown for %s: %w", factionID, err)
	}
	if ttl <= 0 {
		return false, 0, nil
	}
	return true, ttl, nil
}

func (s *cooldownStore) Clear(ctx context.Context, factionID string) error {
	return s.client.Del(ctx, cooldownKey(factionID)).Err()
}
