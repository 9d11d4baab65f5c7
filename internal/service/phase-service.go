package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kaanbarutcu/warseason/cache"
	"github.com/kaanbarutcu/warseason/config"
	apperrors "github.com/kaanbarutcu/warseason/errors"
	"github.com/kaanbarutcu/warseason/internal/phase"
	"github.com/kaanbarutcu/warseason/internal/repository"
	"github.com/kaanbarutcu/warseason/logger"
	"github.com/kaanbarutcu/warseason/models"
)

const phaseTickLock = "phase-tick"

// Standings points per war outcome.
const (
	pointsWin  = 3
	pointsDraw = 1
	pointsLoss = 0
)

type PhaseService interface {
	// RunPhaseTick reconciles the current week's phase with the wall
	// clock, running the entry actions of any phase it transitions into.
	// Safe to call at any frequency and from multiple instances; a tick
	// that finds nothing to do is a no-op.
	RunPhaseTick(ctx context.Context, now time.Time) *apperrors.AppError
}

type phaseService struct {
	seasonRepo     repository.SeasonRepository
	scheduleRepo   repository.ScheduleRepository
	warRepo        repository.WarRepository
	ratingService  RatingService
	cooldowns      cache.CooldownStore
	locker         cache.Locker
	eventPublisher EventPublisher
	logger         *logger.Logger

	seasonLengthWeeks  int
	cooldownDuration   time.Duration
	lockTTL            time.Duration
	tournamentEnabled  bool
	matchingPreference string
}

func NewPhaseService(
	seasonRepo repository.SeasonRepository,
	scheduleRepo repository.ScheduleRepository,
	warRepo repository.WarRepository,
	ratingService RatingService,
	cooldowns cache.CooldownStore,
	locker cache.Locker,
	eventPublisher EventPublisher,
	logger *logger.Logger,
	cfg *config.Config,
) PhaseService {
	return &phaseService{
		seasonRepo:         seasonRepo,
		scheduleRepo:       scheduleRepo,
		warRepo:            warRepo,
		ratingService:      ratingService,
		cooldowns:          cooldowns,
		locker:             locker,
		eventPublisher:     eventPublisher,
		logger:             logger,
		seasonLengthWeeks:  cfg.Season.LengthWeeks,
		cooldownDuration:   time.Duration(cfg.War.CooldownHours) * time.Hour,
		lockTTL:            time.Duration(cfg.Lock.TTLSeconds) * time.Second,
		tournamentEnabled:  cfg.Tournament.Enabled,
		matchingPreference: cfg.Tournament.MatchingPreference,
	}
}

func (s *phaseService) RunPhaseTick(ctx context.Context, now time.Time) *apperrors.AppError {
	acquired, lockErr := s.locker.Acquire(ctx, phaseTickLock, s.lockTTL)
	if lockErr != nil {
		return apperrors.Wrap(lockErr, apperrors.CodeRedisOperationError, "failed to acquire phase tick lock")
	}
	if !acquired {
		s.logger.Debug("phase tick lock held by another instance, skipping tick")
		return nil
	}
	defer s.releaseLock(ctx, phaseTickLock)

	now = now.UTC()

	season, appErr := s.ensureActiveSeason(ctx, now)
	if appErr != nil {
		return appErr
	}

	schedule, appErr := s.ensureWeekSchedule(ctx, season)
	if appErr != nil {
		return appErr
	}

	current, parseErr := phase.Parse(schedule.Phase)
	if parseErr != nil {
		return apperrors.Wrap(parseErr, apperrors.CodeInternalServer, "week schedule holds an unknown phase")
	}

	boundaries := phase.Boundaries{
		DeclarationStart: schedule.DeclarationStart,
		DeclarationEnd:   schedule.DeclarationEnd,
		ResolutionStart:  schedule.ResolutionStart,
		ResolutionEnd:    schedule.ResolutionEnd,
	}

	hasActive := len(schedule.ActiveWarIDs) > 0
	if !hasActive && !now.Before(boundaries.ResolutionStart) && !now.After(boundaries.ResolutionEnd) {
		// Wars still awaiting promotion owe the week an active window even
		// though the schedule's active set has not been rebuilt yet.
		pending, appErr := s.pendingWarCount(ctx, season.SeasonNumber, schedule.WeekNumber)
		if appErr != nil {
			return appErr
		}
		hasActive = pending > 0
	}

	target := phase.Target(now, boundaries, hasActive)
	if target == current {
		return nil
	}

	// Entry actions run before the phase flips, so a crash mid-transition
	// reruns them on the next tick instead of losing them. A tick that
	// lands past a skipped phase still runs the promotions that phase
	// owed; promoting an already-promoted war is a no-op.
	switch target {
	case phase.Preparation:
		s.promoteWars(ctx, season.SeasonNumber, schedule.WeekNumber, models.WarDeclared, models.WarScheduled)
	case phase.Active:
		s.promoteWars(ctx, season.SeasonNumber, schedule.WeekNumber, models.WarDeclared, models.WarScheduled)
		s.promoteWars(ctx, season.SeasonNumber, schedule.WeekNumber, models.WarScheduled, models.WarActive)
		if appErr := s.refreshWarSets(ctx, season.SeasonNumber, schedule.WeekNumber); appErr != nil {
			return appErr
		}
	case phase.Cooldown:
		if now.After(boundaries.ResolutionEnd) {
			// Wars that never reached their active window are activated
			// here so the week closes with every war resolved.
			s.promoteWars(ctx, season.SeasonNumber, schedule.WeekNumber, models.WarDeclared, models.WarScheduled)
			s.promoteWars(ctx, season.SeasonNumber, schedule.WeekNumber, models.WarScheduled, models.WarActive)
			s.resolveWeek(ctx, season, schedule, now)
			if appErr := s.refreshWarSets(ctx, season.SeasonNumber, schedule.WeekNumber); appErr != nil {
				return appErr
			}
			closed, appErr := s.advance(ctx, season, schedule, now)
			if appErr != nil {
				return appErr
			}
			if !closed {
				// Leave the phase untouched so the next tick retries the
				// remaining resolutions and the week close.
				return nil
			}
		}
	}

	moved, err := s.scheduleRepo.UpdatePhase(ctx, season.SeasonNumber, schedule.WeekNumber, current.String(), target.String())
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to persist phase transition")
	}
	if !moved {
		s.logger.Debug("phase already advanced by another instance",
			"season", season.SeasonNumber,
			"week", schedule.WeekNumber,
		)
		return nil
	}

	s.logger.Info("phase transition",
		"from", current.String(),
		"to", target.String(),
		"season", season.SeasonNumber,
		"week", schedule.WeekNumber,
	)

	if pubErr := s.eventPublisher.PublishPhaseChanged(ctx, current.String(), target.String(), season.SeasonNumber, schedule.WeekNumber); pubErr != nil {
		// The transition itself stands; subscribers catch up from the store.
		s.logger.Warn("phase change event not delivered", "error", pubErr)
	}

	return nil
}

// Private methods

func (s *phaseService) ensureActiveSeason(ctx context.Context, now time.Time) (*models.Season, *apperrors.AppError) {
	season, err := s.seasonRepo.GetActiveSeason(ctx)
	if err == nil {
		return season, nil
	}

	var appErr *apperrors.AppError
	if !stderrors.As(err, &appErr) || appErr.Code != apperrors.CodeNoActiveSeason {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to load active season")
	}

	first := &models.Season{
		SeasonNumber: 1,
		Status:       models.SeasonActive,
		StartsAt:     phase.WeekMonday(now),
		LengthWeeks:  s.seasonLengthWeeks,
		CurrentWeek:  1,
	}

	if createErr := s.seasonRepo.Create(ctx, first); createErr != nil {
		var createAppErr *apperrors.AppError
		if stderrors.As(createErr, &createAppErr) && createAppErr.Code == apperrors.CodeAlreadyExists {
			season, err := s.seasonRepo.GetActiveSeason(ctx)
			if err != nil {
				return nil, appError(err, apperrors.CodeDatabaseError, "failed to load active season")
			}
			return season, nil
		}
		return nil, appError(createErr, apperrors.CodeDatabaseError, "failed to bootstrap first season")
	}

	s.logger.Info("bootstrapped first season",
		"starts_at", first.StartsAt,
		"length_weeks", first.LengthWeeks,
	)
	return first, nil
}

func (s *phaseService) ensureWeekSchedule(ctx context.Context, season *models.Season) (*models.WeekSchedule, *apperrors.AppError) {
	schedule, err := s.scheduleRepo.Get(ctx, season.SeasonNumber, season.CurrentWeek)
	if err == nil {
		return schedule, nil
	}

	var appErr *apperrors.AppError
	if !stderrors.As(err, &appErr) || appErr.Code != apperrors.CodeNotFound {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to load week schedule")
	}

	monday := phase.WeekMonday(season.StartsAt).AddDate(0, 0, 7*(season.CurrentWeek-1))
	return s.createWeekSchedule(ctx, season.SeasonNumber, season.CurrentWeek, monday)
}

func (s *phaseService) createWeekSchedule(
	ctx context.Context,
	seasonNumber, weekNumber int,
	monday time.Time,
) (*models.WeekSchedule, *apperrors.AppError) {
	boundaries := phase.ComputeBoundaries(monday)

	schedule := &models.WeekSchedule{
		SeasonNumber:     seasonNumber,
		WeekNumber:       weekNumber,
		Phase:            phase.Declaration.String(),
		DeclarationStart: boundaries.DeclarationStart,
		DeclarationEnd:   boundaries.DeclarationEnd,
		ResolutionStart:  boundaries.ResolutionStart,
		ResolutionEnd:    boundaries.ResolutionEnd,
		DeclaredWarIDs:   []string{},
		ActiveWarIDs:     []string{},
		ResolvedWarIDs:   []string{},
		Tournament: models.TournamentConfig{
			Enabled:            s.tournamentEnabled,
			MatchingPreference: s.matchingPreference,
			Participants:       []models.TournamentEntry{},
			Brackets:           []models.TournamentBracket{},
		},
	}

	if err := s.scheduleRepo.Create(ctx, schedule); err != nil {
		var appErr *apperrors.AppError
		if stderrors.As(err, &appErr) && appErr.Code == apperrors.CodeAlreadyExists {
			existing, getErr := s.scheduleRepo.Get(ctx, seasonNumber, weekNumber)
			if getErr != nil {
				return nil, appError(getErr, apperrors.CodeDatabaseError, "failed to load week schedule")
			}
			return existing, nil
		}
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to create week schedule")
	}

	s.logger.Info("opened war week",
		"season", seasonNumber,
		"week", weekNumber,
		"declaration_start", boundaries.DeclarationStart,
		"resolution_end", boundaries.ResolutionEnd,
	)
	return schedule, nil
}

func (s *phaseService) promoteWars(ctx context.Context, seasonNumber, weekNumber int, fromStatus, toStatus string) {
	wars, err := s.warRepo.ListByWeekAndStatus(ctx, seasonNumber, weekNumber, fromStatus)
	if err != nil {
		s.logger.Error("failed to list wars for promotion",
			"from", fromStatus,
			"to", toStatus,
			"error", err,
		)
		return
	}

	promoted := 0
	for i := range wars {
		changed, err := s.warRepo.UpdateStatus(ctx, &wars[i], fromStatus, toStatus)
		if err != nil {
			s.logger.Error("failed to promote war, continuing with the rest",
				"war_id", wars[i].WarID,
				"error", err,
			)
			continue
		}
		if changed {
			promoted++
		}
	}

	if promoted > 0 {
		s.logger.Info("wars promoted",
			"count", promoted,
			"from", fromStatus,
			"to", toStatus,
			"season", seasonNumber,
			"week", weekNumber,
		)
	}
}

// refreshWarSets rebuilds the schedule's war id sets from the war records
// so the sets always reflect stored status, not in-memory bookkeeping.
func (s *phaseService) refreshWarSets(ctx context.Context, seasonNumber, weekNumber int) *apperrors.AppError {
	wars, err := s.warRepo.ListByWeek(ctx, seasonNumber, weekNumber)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to list wars for the week")
	}

	declared := []string{}
	active := []string{}
	resolved := []string{}
	for i := range wars {
		switch wars[i].Status {
		case models.WarDeclared, models.WarScheduled:
			declared = append(declared, wars[i].WarID)
		case models.WarActive:
			active = append(active, wars[i].WarID)
		case models.WarResolved:
			resolved = append(resolved, wars[i].WarID)
		}
	}

	if err := s.scheduleRepo.SetWarSets(ctx, seasonNumber, weekNumber, declared, active, resolved); err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to update war sets")
	}
	return nil
}

// resolveWeek auto-resolves every war still active at the end of the
// resolution window. A war that fails to resolve is logged and skipped so
// one bad record cannot wedge the whole week.
func (s *phaseService) resolveWeek(ctx context.Context, season *models.Season, schedule *models.WeekSchedule, now time.Time) {
	wars, err := s.warRepo.ListByWeekAndStatus(ctx, season.SeasonNumber, schedule.WeekNumber, models.WarActive)
	if err != nil {
		s.logger.Error("failed to list active wars for resolution", "error", err)
		return
	}

	for i := range wars {
		if appErr := s.resolveWar(ctx, &wars[i], now); appErr != nil {
			s.logger.Error("failed to resolve war, continuing with the rest",
				"war_id", wars[i].WarID,
				"error", appErr,
			)
		}
	}
}

func (s *phaseService) resolveWar(ctx context.Context, war *models.War, now time.Time) *apperrors.AppError {
	outcome := resolveOutcome(war.AttackerScore, war.DefenderScore)

	changed, err := s.warRepo.Resolve(ctx, war, outcome, now)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to mark war resolved")
	}
	if !changed {
		s.logger.Debug("war already resolved by another instance", "war_id", war.WarID)
		return nil
	}

	if appErr := s.recordOutcome(ctx, war, outcome); appErr != nil {
		return appErr
	}

	for _, factionID := range []string{war.AttackerID, war.DefenderID} {
		if err := s.cooldowns.Set(ctx, factionID, s.cooldownDuration); err != nil {
			s.logger.Warn("failed to set war cooldown", "faction_id", factionID, "error", err)
		}
	}

	s.logger.Info("war resolved",
		"war_id", war.WarID,
		"outcome", outcome,
		"attacker_score", war.AttackerScore,
		"defender_score", war.DefenderScore,
	)

	if pubErr := s.eventPublisher.PublishWarResolved(ctx, war.WarID, war.SeasonNumber, war.WeekNumber, outcome, war.AttackerID, war.DefenderID); pubErr != nil {
		s.logger.Warn("war resolved event not delivered", "war_id", war.WarID, "error", pubErr)
	}

	return nil
}

func (s *phaseService) recordOutcome(ctx context.Context, war *models.War, outcome string) *apperrors.AppError {
	var winnerID, loserID string
	switch outcome {
	case models.OutcomeAttackerVictory:
		winnerID, loserID = war.AttackerID, war.DefenderID
	case models.OutcomeDefenderVictory:
		winnerID, loserID = war.DefenderID, war.AttackerID
	case models.OutcomeDraw:
		for _, factionID := range []string{war.AttackerID, war.DefenderID} {
			if err := s.seasonRepo.AddStandingDelta(ctx, war.SeasonNumber, factionID, 0, 0, 1, pointsDraw); err != nil {
				return appError(err, apperrors.CodeDatabaseError, "failed to update standing")
			}
		}
		return nil
	}

	if err := s.seasonRepo.AddStandingDelta(ctx, war.SeasonNumber, winnerID, 1, 0, 0, pointsWin); err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to update winner standing")
	}
	if err := s.seasonRepo.AddStandingDelta(ctx, war.SeasonNumber, loserID, 0, 1, 0, pointsLoss); err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to update loser standing")
	}

	if appErr := s.ratingService.RecordWarResult(ctx, winnerID, true); appErr != nil {
		s.logger.Warn("failed to record win on rating", "faction_id", winnerID, "error", appErr)
	}
	if appErr := s.ratingService.RecordWarResult(ctx, loserID, false); appErr != nil {
		s.logger.Warn("failed to record loss on rating", "faction_id", loserID, "error", appErr)
	}

	return nil
}

// advance closes the week: it moves the season to its next week, or
// through season rollover when the closed week was the last one. A false
// return means unresolved wars remain and the close is deferred to the
// next tick.
func (s *phaseService) advance(ctx context.Context, season *models.Season, schedule *models.WeekSchedule, now time.Time) (bool, *apperrors.AppError) {
	unresolved, appErr := s.pendingWarCount(ctx, season.SeasonNumber, schedule.WeekNumber)
	if appErr != nil {
		return false, appErr
	}
	if unresolved > 0 {
		s.logger.Warn("week close deferred, unresolved wars remain",
			"season", season.SeasonNumber,
			"week", schedule.WeekNumber,
			"unresolved", unresolved,
		)
		return false, nil
	}

	if schedule.WeekNumber >= season.LengthWeeks {
		if appErr := s.rolloverSeason(ctx, season, schedule, now); appErr != nil {
			return false, appErr
		}
		return true, nil
	}

	nextWeek := schedule.WeekNumber + 1
	if err := s.seasonRepo.SetCurrentWeek(ctx, season.SeasonNumber, nextWeek); err != nil {
		return false, appError(err, apperrors.CodeDatabaseError, "failed to advance current week")
	}
	season.CurrentWeek = nextWeek

	if _, appErr := s.createWeekSchedule(ctx, season.SeasonNumber, nextWeek, phase.NextMonday(schedule.DeclarationStart)); appErr != nil {
		return false, appErr
	}
	return true, nil
}

// pendingWarCount counts the week's wars that have not reached a
// resolved outcome yet.
func (s *phaseService) pendingWarCount(ctx context.Context, seasonNumber, weekNumber int) (int, *apperrors.AppError) {
	wars, err := s.warRepo.ListByWeek(ctx, seasonNumber, weekNumber)
	if err != nil {
		return 0, appError(err, apperrors.CodeDatabaseError, "failed to list wars for the week")
	}

	pending := 0
	for i := range wars {
		if wars[i].Status != models.WarResolved {
			pending++
		}
	}
	return pending, nil
}

// rolloverSeason creates the next season before concluding the current
// one; if the process dies in between, the next tick finds the old season
// still active and reruns the rollover to completion.
func (s *phaseService) rolloverSeason(ctx context.Context, season *models.Season, schedule *models.WeekSchedule, now time.Time) *apperrors.AppError {
	next := &models.Season{
		SeasonNumber: season.SeasonNumber + 1,
		Status:       models.SeasonActive,
		StartsAt:     phase.NextMonday(schedule.DeclarationStart),
		LengthWeeks:  s.seasonLengthWeeks,
		CurrentWeek:  1,
	}

	if err := s.seasonRepo.Create(ctx, next); err != nil {
		var appErr *apperrors.AppError
		if !stderrors.As(err, &appErr) || appErr.Code != apperrors.CodeAlreadyExists {
			return appError(err, apperrors.CodeDatabaseError, "failed to create next season")
		}
	}

	if _, appErr := s.createWeekSchedule(ctx, next.SeasonNumber, 1, next.StartsAt); appErr != nil {
		return appErr
	}

	concluded, err := s.seasonRepo.Conclude(ctx, season.SeasonNumber, now)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to conclude season")
	}
	if !concluded {
		s.logger.Debug("season already concluded by another instance", "season", season.SeasonNumber)
		return nil
	}

	standings, listErr := s.seasonRepo.ListStandings(ctx, season.SeasonNumber)
	if listErr != nil {
		s.logger.Warn("failed to read final standings", "season", season.SeasonNumber, "error", listErr)
	}

	s.logger.Info("season concluded",
		"season", season.SeasonNumber,
		"next_season", next.SeasonNumber,
		"next_starts_at", next.StartsAt,
		"standings", len(standings),
	)

	if appErr := s.ratingService.ResetAllSeasonCounters(ctx); appErr != nil {
		s.logger.Warn("failed to reset season rating counters", "error", appErr)
	}

	return nil
}

func (s *phaseService) releaseLock(ctx context.Context, name string) {
	if err := s.locker.Release(ctx, name); err != nil {
		s.logger.Warn("failed to release lock", "lock", name, "error", err)
	}
}

// resolveOutcome compares final combat scores: the higher score wins and
// equal scores are a draw.
func resolveOutcome(attackerScore, defenderScore int64) string {
	switch {
	case attackerScore > defenderScore:
		return models.OutcomeAttackerVictory
	case defenderScore > attackerScore:
		return models.OutcomeDefenderVictory
	default:
		return models.OutcomeDraw
	}
}
