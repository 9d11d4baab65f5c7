package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kaanbarutcu/warseason/cache"
	"github.com/kaanbarutcu/warseason/config"
	"github.com/kaanbarutcu/warseason/database"
	apperrors "github.com/kaanbarutcu/warseason/errors"
	warerrors "github.com/kaanbarutcu/warseason/internal/errors"
	"github.com/kaanbarutcu/warseason/internal/phase"
	"github.com/kaanbarutcu/warseason/internal/rating"
	"github.com/kaanbarutcu/warseason/internal/repository"
	"github.com/kaanbarutcu/warseason/logger"
	"github.com/kaanbarutcu/warseason/models"
)

// EligibilityResult reports whether a faction may declare a war right
// now, with every violated restriction listed rather than just the first.
type EligibilityResult struct {
	Allowed bool
	Phase   string
	Reasons []string
}

type WarService interface {
	CheckDeclarationEligibility(ctx context.Context, factionID string) (*EligibilityResult, *apperrors.AppError)
	// DeclareWar creates a declared war for the current week after the
	// attacker passes eligibility and both parties pass the matchmaking
	// fairness check.
	DeclareWar(ctx context.Context, attackerID, defenderID string) (*models.War, *apperrors.AppError)
	// ApplyCombatScore accumulates combat points onto one side of a war.
	// Scores against wars outside their active window are dropped.
	ApplyCombatScore(ctx context.Context, warID, side string, points int64) *apperrors.AppError
}

type warService struct {
	seasonRepo      repository.SeasonRepository
	scheduleRepo    repository.ScheduleRepository
	warRepo         repository.WarRepository
	transactionRepo database.TransactionRepository
	ratingService   RatingService
	cooldowns       cache.CooldownStore
	logger          *logger.Logger

	maxWarsPerWeek int
	matchRules     rating.Rules
}

func NewWarService(
	seasonRepo repository.SeasonRepository,
	scheduleRepo repository.ScheduleRepository,
	warRepo repository.WarRepository,
	transactionRepo database.TransactionRepository,
	ratingService RatingService,
	cooldowns cache.CooldownStore,
	logger *logger.Logger,
	cfg *config.Config,
) WarService {
	return &warService{
		seasonRepo:      seasonRepo,
		scheduleRepo:    scheduleRepo,
		warRepo:         warRepo,
		transactionRepo: transactionRepo,
		ratingService:   ratingService,
		cooldowns:       cooldowns,
		logger:          logger,
		maxWarsPerWeek:  cfg.War.MaxWarsPerWeek,
		matchRules: rating.Rules{
			AllowAdjacentTiers: cfg.Matchmaking.AllowAdjacentTiers,
			MaxPowerGapPercent: cfg.Matchmaking.MaxPowerGapPercent,
		},
	}
}

func (s *warService) CheckDeclarationEligibility(ctx context.Context, factionID string) (*EligibilityResult, *apperrors.AppError) {
	season, err := s.seasonRepo.GetActiveSeason(ctx)
	if err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to load active season")
	}

	schedule, err := s.scheduleRepo.Get(ctx, season.SeasonNumber, season.CurrentWeek)
	if err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to load week schedule")
	}

	reasons, appErr := s.declarationReasons(ctx, season, schedule, factionID)
	if appErr != nil {
		return nil, appErr
	}

	return &EligibilityResult{
		Allowed: len(reasons) == 0,
		Phase:   schedule.Phase,
		Reasons: reasons,
	}, nil
}

func (s *warService) DeclareWar(ctx context.Context, attackerID, defenderID string) (*models.War, *apperrors.AppError) {
	if attackerID == defenderID {
		return nil, warerrors.DeclarationRejectedError([]string{"a faction cannot declare war on itself"})
	}

	season, err := s.seasonRepo.GetActiveSeason(ctx)
	if err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to load active season")
	}

	schedule, err := s.scheduleRepo.Get(ctx, season.SeasonNumber, season.CurrentWeek)
	if err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to load week schedule")
	}

	reasons, appErr := s.declarationReasons(ctx, season, schedule, attackerID)
	if appErr != nil {
		return nil, appErr
	}
	if len(reasons) > 0 {
		return nil, warerrors.DeclarationRejectedError(reasons)
	}

	ongoing, appErr := s.hasUnresolvedWar(ctx, season, defenderID)
	if appErr != nil {
		return nil, appErr
	}
	if ongoing {
		return nil, warerrors.DeclarationRejectedError([]string{"defender already has an unresolved war this week"})
	}

	attackerRating, appErr := s.ratingService.GetRating(ctx, attackerID)
	if appErr != nil {
		return nil, appErr
	}
	defenderRating, appErr := s.ratingService.GetRating(ctx, defenderID)
	if appErr != nil {
		return nil, appErr
	}

	decision := rating.CanMatch(
		rating.Tier(attackerRating.Tier), attackerRating.Total,
		rating.Tier(defenderRating.Tier), defenderRating.Total,
		s.matchRules,
	)
	if !decision.Allowed {
		return nil, warerrors.MatchmakingRejectedError(decision.Reasons)
	}

	war := &models.War{
		WarID:        uuid.New().String(),
		SeasonNumber: season.SeasonNumber,
		WeekNumber:   season.CurrentWeek,
		AttackerID:   attackerID,
		DefenderID:   defenderID,
		Status:       models.WarDeclared,
	}

	// The war record and its schedule reference are written together so a
	// war can never exist outside its week's declared set.
	putWar, txErr := s.warRepo.GetTransactionForCreate(war)
	if txErr != nil {
		return nil, apperrors.Wrap(txErr, apperrors.CodeTransactionError, "failed to build war creation transaction")
	}

	transactionBuilder := database.NewTransactionBuilder()
	transactionBuilder.AddPut(putWar)
	transactionBuilder.AddUpdate(s.scheduleRepo.GetTransactionForDeclaredWar(season.SeasonNumber, season.CurrentWeek, war.WarID))

	if err := s.transactionRepo.Execute(ctx, transactionBuilder); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to persist war declaration")
	}

	s.logger.Info("war declared",
		"war_id", war.WarID,
		"attacker_id", attackerID,
		"defender_id", defenderID,
		"season", season.SeasonNumber,
		"week", season.CurrentWeek,
		"tier_gap", decision.TierGap,
	)

	return war, nil
}

func (s *warService) ApplyCombatScore(ctx context.Context, warID, side string, points int64) *apperrors.AppError {
	war, err := s.warRepo.ApplyScore(ctx, warID, side, points)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to apply combat score")
	}

	if war == nil {
		s.logger.Debug("combat score dropped, war is not in its active window", "war_id", warID)
		return nil
	}

	s.logger.Debug("combat score applied",
		"war_id", warID,
		"side", side,
		"points", points,
		"attacker_score", war.AttackerScore,
		"defender_score", war.DefenderScore,
	)
	return nil
}

// Private methods

func (s *warService) declarationReasons(
	ctx context.Context,
	season *models.Season,
	schedule *models.WeekSchedule,
	factionID string,
) ([]string, *apperrors.AppError) {
	var reasons []string

	if schedule.Phase != phase.Declaration.String() {
		reasons = append(reasons, fmt.Sprintf("declarations are closed during the %s phase", schedule.Phase))
	}

	onCooldown, remaining, err := s.cooldowns.Active(ctx, factionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to check war cooldown")
	}
	if onCooldown {
		reasons = append(reasons, fmt.Sprintf("faction is on war cooldown for another %s", remaining.Round(time.Minute)))
	}

	wars, listErr := s.warRepo.ListByWeek(ctx, season.SeasonNumber, season.CurrentWeek)
	if listErr != nil {
		return nil, appError(listErr, apperrors.CodeDatabaseError, "failed to list wars for the week")
	}

	count := 0
	unresolved := false
	for i := range wars {
		if !wars[i].Involves(factionID) {
			continue
		}
		count++
		if wars[i].Status != models.WarResolved {
			unresolved = true
		}
	}

	if count >= s.maxWarsPerWeek {
		reasons = append(reasons, fmt.Sprintf("weekly war limit of %d reached", s.maxWarsPerWeek))
	}
	if unresolved {
		reasons = append(reasons, "faction already has an unresolved war this week")
	}

	return reasons, nil
}

func (s *warService) hasUnresolvedWar(
	ctx context.Context,
	season *models.Season,
	factionID string,
) (bool, *apperrors.AppError) {
	wars, err := s.warRepo.ListByWeek(ctx, season.SeasonNumber, season.CurrentWeek)
	if err != nil {
		return false, appError(err, apperrors.CodeDatabaseError, "failed to list wars for the week")
	}

	for i := range wars {
		if wars[i].Involves(factionID) && wars[i].Status != models.WarResolved {
			return true, nil
		}
	}
	return false, nil
}
