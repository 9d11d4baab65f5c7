package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kaanbarutcu/warseason/cache"
	"github.com/kaanbarutcu/warseason/config"
	apperrors "github.com/kaanbarutcu/warseason/errors"
	"github.com/kaanbarutcu/warseason/internal/rating"
	"github.com/kaanbarutcu/warseason/internal/repository"
	"github.com/kaanbarutcu/warseason/logger"
	"github.com/kaanbarutcu/warseason/models"

	warerrors "github.com/kaanbarutcu/warseason/internal/errors"
)

const ratingRefreshLock = "rating-refresh"

// How many stale ratings one refresh pass will touch.
const staleRefreshBatch = 100

type RatingService interface {
	// GetRating returns the faction's current rating, computing it on
	// first access and recomputing it when it has gone stale.
	GetRating(ctx context.Context, factionID string) (*models.PowerRating, *apperrors.AppError)
	RecomputeRating(ctx context.Context, factionID string) (*models.PowerRating, *apperrors.AppError)
	// RefreshStaleRatings recomputes ratings whose snapshot age passed the
	// staleness threshold. Returns how many ratings were refreshed.
	RefreshStaleRatings(ctx context.Context) (int, *apperrors.AppError)
	RecordWarResult(ctx context.Context, factionID string, won bool) *apperrors.AppError
	// ResetAllSeasonCounters zeroes every faction's seasonal win/loss
	// record and recomputes the ratings without the win-rate bonus.
	ResetAllSeasonCounters(ctx context.Context) *apperrors.AppError
}

type ratingService struct {
	ratingRepo  repository.RatingRepository
	snapshots   repository.FactionSnapshotProvider
	leaderboard LeaderboardStore
	locker      cache.Locker
	logger      *logger.Logger

	staleAfter time.Duration
	lockTTL    time.Duration
}

func NewRatingService(
	ratingRepo repository.RatingRepository,
	snapshots repository.FactionSnapshotProvider,
	leaderboard LeaderboardStore,
	locker cache.Locker,
	logger *logger.Logger,
	cfg *config.Config,
) RatingService {
	return &ratingService{
		ratingRepo:  ratingRepo,
		snapshots:   snapshots,
		leaderboard: leaderboard,
		locker:      locker,
		logger:      logger,
		staleAfter:  time.Duration(cfg.Rating.StaleAfterMinutes) * time.Minute,
		lockTTL:     time.Duration(cfg.Lock.TTLSeconds) * time.Second,
	}
}

func (s *ratingService) GetRating(ctx context.Context, factionID string) (*models.PowerRating, *apperrors.AppError) {
	existing, err := s.ratingRepo.Get(ctx, factionID)
	if err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to load power rating")
	}

	if existing != nil && time.Since(existing.ComputedAt) < s.staleAfter {
		return existing, nil
	}

	return s.recompute(ctx, factionID, existing, false)
}

func (s *ratingService) RecomputeRating(ctx context.Context, factionID string) (*models.PowerRating, *apperrors.AppError) {
	existing, err := s.ratingRepo.Get(ctx, factionID)
	if err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to load power rating")
	}

	return s.recompute(ctx, factionID, existing, false)
}

func (s *ratingService) RefreshStaleRatings(ctx context.Context) (int, *apperrors.AppError) {
	acquired, lockErr := s.locker.Acquire(ctx, ratingRefreshLock, s.lockTTL)
	if lockErr != nil {
		return 0, apperrors.Wrap(lockErr, apperrors.CodeRedisOperationError, "failed to acquire rating refresh lock")
	}
	if !acquired {
		s.logger.Debug("rating refresh lock held by another instance, skipping pass")
		return 0, nil
	}
	defer s.releaseLock(ctx, ratingRefreshLock)

	cutoff := time.Now().UTC().Add(-s.staleAfter)
	stale, err := s.ratingRepo.ListStale(ctx, cutoff, staleRefreshBatch)
	if err != nil {
		return 0, appError(err, apperrors.CodeDatabaseError, "failed to list stale ratings")
	}

	refreshed := 0
	for i := range stale {
		if _, appErr := s.recompute(ctx, stale[i].FactionID, &stale[i], false); appErr != nil {
			s.logger.Warn("failed to refresh rating, continuing with the rest",
				"faction_id", stale[i].FactionID,
				"error", appErr,
			)
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		s.logger.Info("refreshed stale power ratings", "count", refreshed)
	}
	return refreshed, nil
}

func (s *ratingService) RecordWarResult(ctx context.Context, factionID string, won bool) *apperrors.AppError {
	if err := s.ratingRepo.RecordResult(ctx, factionID, won); err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to record war result")
	}
	return nil
}

func (s *ratingService) ResetAllSeasonCounters(ctx context.Context) *apperrors.AppError {
	ratings, err := s.ratingRepo.ListAll(ctx)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to list power ratings")
	}

	for i := range ratings {
		factionID := ratings[i].FactionID
		if err := s.ratingRepo.ResetSeasonCounters(ctx, factionID); err != nil {
			s.logger.Warn("failed to reset season counters", "faction_id", factionID, "error", err)
			continue
		}

		ratings[i].SeasonWins = 0
		ratings[i].SeasonLosses = 0
		if _, appErr := s.recompute(ctx, factionID, &ratings[i], true); appErr != nil {
			s.logger.Warn("failed to recompute rating after season reset",
				"faction_id", factionID,
				"error", appErr,
			)
		}
	}

	s.logger.Info("season counters reset", "factions", len(ratings))
	return nil
}

// Private methods

// recompute rebuilds the rating from a fresh faction snapshot. A stored
// rating never goes down from a routine recompute; only a season reset
// may lower it.
func (s *ratingService) recompute(
	ctx context.Context,
	factionID string,
	existing *models.PowerRating,
	allowDecay bool,
) (*models.PowerRating, *apperrors.AppError) {
	snapshot, err := s.snapshots.GetSnapshot(ctx, factionID)
	if err != nil {
		var appErr *apperrors.AppError
		if stderrors.As(err, &appErr) && appErr.Code == apperrors.CodeNotFound {
			return nil, warerrors.RatingUnavailableError(factionID)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load faction snapshot")
	}

	wins, losses := 0, 0
	if existing != nil {
		wins = existing.SeasonWins
		losses = existing.SeasonLosses
	}

	breakdown := rating.Compute(rating.Snapshot{
		MemberCount:    snapshot.MemberCount,
		FactionLevel:   snapshot.FactionLevel,
		AvgMemberLevel: snapshot.AvgMemberLevel,
		TerritoryCount: snapshot.TerritoryCount,
		Treasury:       snapshot.Treasury,
		UpgradeCount:   snapshot.UpgradeCount,
		SeasonWins:     wins,
		SeasonLosses:   losses,
	})

	if existing != nil && !allowDecay && breakdown.Total < existing.Total {
		s.logger.Debug("recomputed rating below stored value, keeping stored rating",
			"faction_id", factionID,
			"stored", existing.Total,
			"recomputed", breakdown.Total,
		)
		return existing, nil
	}

	updated := &models.PowerRating{
		FactionID:           factionID,
		MemberScore:         breakdown.MemberScore,
		LevelScore:          breakdown.LevelScore,
		AvgMemberLevelScore: breakdown.AvgMemberLevelScore,
		TerritoryScore:      breakdown.TerritoryScore,
		WealthScore:         breakdown.WealthScore,
		UpgradeScore:        breakdown.UpgradeScore,
		WinRateBonus:        breakdown.WinRateBonus,
		Total:               breakdown.Total,
		Tier:                string(breakdown.Tier),
		SeasonWins:          wins,
		SeasonLosses:        losses,
		ComputedAt:          time.Now().UTC(),
	}
	if existing != nil {
		updated.CreatedAt = existing.CreatedAt
	}

	if err := s.ratingRepo.Put(ctx, updated); err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to store power rating")
	}

	if err := s.leaderboard.UpdateRating(ctx, factionID, updated.Tier, updated.Total, tierNames()); err != nil {
		// The leaderboard is a cache over the stored ratings; a failed
		// refresh heals on the next recompute.
		s.logger.Warn("failed to refresh leaderboard entry", "faction_id", factionID, "error", err)
	}

	return updated, nil
}

func (s *ratingService) releaseLock(ctx context.Context, name string) {
	if err := s.locker.Release(ctx, name); err != nil {
		s.logger.Warn("failed to release lock", "lock", name, "error", err)
	}
}

// Helpers shared across the service layer.

func appError(err error, code, message string) *apperrors.AppError {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Wrap(err, code, message)
}

func tierNames() []string {
	tiers := rating.Tiers()
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = string(t)
	}
	return names
}
