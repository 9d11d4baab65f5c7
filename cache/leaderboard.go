package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const GlobalLimit = 1000

// LeaderboardEntry is one faction's rank on a power-rating leaderboard.
type LeaderboardEntry struct {
	FactionID string
	Rating    int
	Rank      int
}

// LeaderboardRepo keeps the power-rating leaderboards (global plus one per
// tier) as Redis sorted sets, refreshed whenever a rating is written.
type LeaderboardRepo struct {
	client *redis.Client
}

func NewLeaderboardRepo(client *RedisClient) *LeaderboardRepo {
	return &LeaderboardRepo{client: client.GetClient()}
}

// Key Generation Helpers

func globalKey() string {
	return "leaderboard:power:global"
}

func tierKey(tier string) string {
	return fmt.Sprintf("leaderboard:power:tier:%s", tier)
}

// Write Operations

// UpdateRating moves a faction to its current tier set and refreshes its
// scores. The faction is removed from every other tier set so a tier
// change never leaves a stale entry behind.
func (r *LeaderboardRepo) UpdateRating(ctx context.Context, factionID, tier string, total int, allTiers []string) error {
	pipe := r.client.Pipeline()

	member := redis.Z{
		Score:  float64(total),
		Member: factionID,
	}

	pipe.ZAdd(ctx, globalKey(), member)
	pipe.ZRemRangeByRank(ctx, globalKey(), 0, -GlobalLimit-1)

	for _, t := range allTiers {
		if t == tier {
			pipe.ZAdd(ctx, tierKey(t), member)
		} else {
			pipe.ZRem(ctx, tierKey(t), factionID)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Read Operations

func (r *LeaderboardRepo) GetGlobalLeaderboard(ctx context.Context, limit int64) ([]LeaderboardEntry, error) {
	return r.topOf(ctx, globalKey(), limit)
}

func (r *LeaderboardRepo) GetTierLeaderboard(ctx context.Context, tier string, limit int64) ([]LeaderboardEntry, error) {
	return r.topOf(ctx, tierKey(tier), limit)
}

// GetTierCounts returns how many rated factions sit in each tier.
func (r *LeaderboardRepo) GetTierCounts(ctx context.Context, tiers []string) (map[string]int64, error) {
	pipe := r.client.Pipeline()

	cards := make(map[string]*redis.IntCmd, len(tiers))
	for _, t := range tiers {
		cards[t] = pipe.ZCard(ctx, tierKey(t))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(tiers))
	for t, cmd := range cards {
		counts[t] = cmd.Val()
	}
	return counts, nil
}

func (r *LeaderboardRepo) topOf(ctx context.Context, key string, limit int64) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = GlobalLimit
	}

	members, err := r.client.ZRevRangeWithScores(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(members))
	for i, m := range members {
		id, _ := m.Member.(string)
		entries = append(entries, LeaderboardEntry{
			FactionID: id,
			Rating:    int(m.Score),
			Rank:      i + 1,
		})
	}
	return entries, nil
}
