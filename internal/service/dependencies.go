package service

import (
	"context"

	"github.com/kaanbarutcu/warseason/cache"
)

// LeaderboardStore is the slice of the leaderboard cache the services
// depend on. Satisfied by cache.LeaderboardRepo.
type LeaderboardStore interface {
	UpdateRating(ctx context.Context, factionID, tier string, total int, allTiers []string) error
	GetGlobalLeaderboard(ctx context.Context, limit int64) ([]cache.LeaderboardEntry, error)
	GetTierLeaderboard(ctx context.Context, tier string, limit int64) ([]cache.LeaderboardEntry, error)
	GetTierCounts(ctx context.Context, tiers []string) (map[string]int64, error)
}

// EventPublisher is the outbound notification surface. Satisfied by
// publisher.EventPublisher.
type EventPublisher interface {
	PublishPhaseChanged(ctx context.Context, previousPhase, newPhase string, seasonNumber, weekNumber int) error
	PublishWarResolved(ctx context.Context, warID string, seasonNumber, weekNumber int, outcome, attackerID, defenderID string) error
	PublishBracketGenerated(ctx context.Context, tier string, matchCount, byeCount int) error
	PublishMatchReady(ctx context.Context, tier string, round, position int, factionA, factionB string) error
}
