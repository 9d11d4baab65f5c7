package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kaanbarutcu/warseason/cache"
	apperrors "github.com/kaanbarutcu/warseason/errors"
	"github.com/kaanbarutcu/warseason/internal/phase"
	"github.com/kaanbarutcu/warseason/internal/rating"
	"github.com/kaanbarutcu/warseason/internal/repository"
	"github.com/kaanbarutcu/warseason/logger"
	"github.com/kaanbarutcu/warseason/models"
)

// ScheduleStatus is the read-side summary of the current war week.
type ScheduleStatus struct {
	SeasonNumber      int
	WeekNumber        int
	Phase             string
	DeclarationOpen   bool
	ResolutionActive  bool
	DeclarationEndsAt time.Time
	ResolutionEndsAt  time.Time
	DeclaredWars      int
	ActiveWars        int
	ResolvedWars      int
	TournamentEnabled bool
	BracketGenerated  bool
	TournamentEntries int
}

type QueryService interface {
	GetCurrentPhase(ctx context.Context) (string, *apperrors.AppError)
	GetScheduleStatus(ctx context.Context) (*ScheduleStatus, *apperrors.AppError)
	GetDeclarationEligibility(ctx context.Context, factionID string) (*EligibilityResult, *apperrors.AppError)
	GetWar(ctx context.Context, warID string) (*models.War, *apperrors.AppError)
	GetBrackets(ctx context.Context) ([]models.TournamentBracket, *apperrors.AppError)
	// GetSeasonStandings returns the active season's standings ordered by
	// score, then wins, then faction id for a stable ranking.
	GetSeasonStandings(ctx context.Context) ([]models.Standing, *apperrors.AppError)
	GetGlobalLeaderboard(ctx context.Context, limit int64) ([]cache.LeaderboardEntry, *apperrors.AppError)
	GetTierLeaderboard(ctx context.Context, tier string, limit int64) ([]cache.LeaderboardEntry, *apperrors.AppError)
	GetTierDistribution(ctx context.Context) (map[string]int64, *apperrors.AppError)
}

type queryService struct {
	seasonRepo   repository.SeasonRepository
	scheduleRepo repository.ScheduleRepository
	warRepo      repository.WarRepository
	warService   WarService
	leaderboard  LeaderboardStore
	logger       *logger.Logger
}

func NewQueryService(
	seasonRepo repository.SeasonRepository,
	scheduleRepo repository.ScheduleRepository,
	warRepo repository.WarRepository,
	warService WarService,
	leaderboard LeaderboardStore,
	logger *logger.Logger,
) QueryService {
	return &queryService{
		seasonRepo:   seasonRepo,
		scheduleRepo: scheduleRepo,
		warRepo:      warRepo,
		warService:   warService,
		leaderboard:  leaderboard,
		logger:       logger,
	}
}

func (s *queryService) GetCurrentPhase(ctx context.Context) (string, *apperrors.AppError) {
	schedule, appErr := s.currentSchedule(ctx)
	if appErr != nil {
		return "", appErr
	}
	return schedule.Phase, nil
}

func (s *queryService) GetScheduleStatus(ctx context.Context) (*ScheduleStatus, *apperrors.AppError) {
	schedule, appErr := s.currentSchedule(ctx)
	if appErr != nil {
		return nil, appErr
	}

	return &ScheduleStatus{
		SeasonNumber:      schedule.SeasonNumber,
		WeekNumber:        schedule.WeekNumber,
		Phase:             schedule.Phase,
		DeclarationOpen:   schedule.Phase == phase.Declaration.String(),
		ResolutionActive:  schedule.Phase == phase.Resolution.String(),
		DeclarationEndsAt: schedule.DeclarationEnd,
		ResolutionEndsAt:  schedule.ResolutionEnd,
		DeclaredWars:      len(schedule.DeclaredWarIDs),
		ActiveWars:        len(schedule.ActiveWarIDs),
		ResolvedWars:      len(schedule.ResolvedWarIDs),
		TournamentEnabled: schedule.Tournament.Enabled,
		BracketGenerated:  schedule.Tournament.BracketGenerated,
		TournamentEntries: len(schedule.Tournament.Participants),
	}, nil
}

func (s *queryService) GetDeclarationEligibility(ctx context.Context, factionID string) (*EligibilityResult, *apperrors.AppError) {
	return s.warService.CheckDeclarationEligibility(ctx, factionID)
}

func (s *queryService) GetWar(ctx context.Context, warID string) (*models.War, *apperrors.AppError) {
	war, err := s.warRepo.GetById(ctx, warID)
	if err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to load war")
	}
	return war, nil
}

func (s *queryService) GetBrackets(ctx context.Context) ([]models.TournamentBracket, *apperrors.AppError) {
	schedule, appErr := s.currentSchedule(ctx)
	if appErr != nil {
		return nil, appErr
	}
	return schedule.Tournament.Brackets, nil
}

func (s *queryService) GetSeasonStandings(ctx context.Context) ([]models.Standing, *apperrors.AppError) {
	season, err := s.seasonRepo.GetActiveSeason(ctx)
	if err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to load active season")
	}

	standings, err := s.seasonRepo.ListStandings(ctx, season.SeasonNumber)
	if err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to list standings")
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Score != standings[j].Score {
			return standings[i].Score > standings[j].Score
		}
		if standings[i].Wins != standings[j].Wins {
			return standings[i].Wins > standings[j].Wins
		}
		return standings[i].FactionID < standings[j].FactionID
	})

	return standings, nil
}

func (s *queryService) GetGlobalLeaderboard(ctx context.Context, limit int64) ([]cache.LeaderboardEntry, *apperrors.AppError) {
	entries, err := s.leaderboard.GetGlobalLeaderboard(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to read global leaderboard")
	}
	return entries, nil
}

func (s *queryService) GetTierLeaderboard(ctx context.Context, tier string, limit int64) ([]cache.LeaderboardEntry, *apperrors.AppError) {
	if rating.TierIndex(rating.Tier(tier)) < 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("unknown tier: %s", tier))
	}

	entries, err := s.leaderboard.GetTierLeaderboard(ctx, tier, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to read tier leaderboard")
	}
	return entries, nil
}

func (s *queryService) GetTierDistribution(ctx context.Context) (map[string]int64, *apperrors.AppError) {
	counts, err := s.leaderboard.GetTierCounts(ctx, tierNames())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to read tier distribution")
	}
	return counts, nil
}

// Private methods

func (s *queryService) currentSchedule(ctx context.Context) (*models.WeekSchedule, *apperrors.AppError) {
	season, err := s.seasonRepo.GetActiveSeason(ctx)
	if err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to load active season")
	}

	schedule, err := s.scheduleRepo.Get(ctx, season.SeasonNumber, season.CurrentWeek)
	if err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to load week schedule")
	}
	return schedule, nil
}
