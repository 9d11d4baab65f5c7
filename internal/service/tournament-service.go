package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/kaanbarutcu/warseason/cache"
	"github.com/kaanbarutcu/warseason/config"
	apperrors "github.com/kaanbarutcu/warseason/errors"
	"github.com/kaanbarutcu/warseason/internal/bracket"
	warerrors "github.com/kaanbarutcu/warseason/internal/errors"
	"github.com/kaanbarutcu/warseason/internal/rating"
	"github.com/kaanbarutcu/warseason/internal/repository"
	"github.com/kaanbarutcu/warseason/logger"
	"github.com/kaanbarutcu/warseason/models"
)

const bracketGenerationLock = "bracket-generation"

type TournamentService interface {
	// OptIn registers a faction for the current week's tournament with a
	// snapshot of its power rating. Opting in twice is a no-op.
	OptIn(ctx context.Context, factionID string) *apperrors.AppError
	// RunBracketGeneration builds per-tier single-elimination brackets
	// from the opted-in, unmatched factions. Outside the generation
	// window, or when the week's brackets already exist, it is a no-op.
	RunBracketGeneration(ctx context.Context, now time.Time) *apperrors.AppError
	AdvanceMatchWinner(ctx context.Context, tier string, round, position int, winnerID string) *apperrors.AppError
	// LinkMatchWar attaches the war instantiated for a ready match.
	LinkMatchWar(ctx context.Context, tier string, round, position int, warID string) *apperrors.AppError
}

type tournamentService struct {
	seasonRepo     repository.SeasonRepository
	scheduleRepo   repository.ScheduleRepository
	warRepo        repository.WarRepository
	ratingService  RatingService
	locker         cache.Locker
	eventPublisher EventPublisher
	logger         *logger.Logger

	enabled           bool
	generationWeekday time.Weekday
	generationHour    int
	minParticipants   int
	lockTTL           time.Duration
}

func NewTournamentService(
	seasonRepo repository.SeasonRepository,
	scheduleRepo repository.ScheduleRepository,
	warRepo repository.WarRepository,
	ratingService RatingService,
	locker cache.Locker,
	eventPublisher EventPublisher,
	logger *logger.Logger,
	cfg *config.Config,
) TournamentService {
	return &tournamentService{
		seasonRepo:        seasonRepo,
		scheduleRepo:      scheduleRepo,
		warRepo:           warRepo,
		ratingService:     ratingService,
		locker:            locker,
		eventPublisher:    eventPublisher,
		logger:            logger,
		enabled:           cfg.Tournament.Enabled,
		generationWeekday: time.Weekday(cfg.Tournament.GenerationWeekday),
		generationHour:    cfg.Tournament.GenerationHour,
		minParticipants:   cfg.Tournament.MinParticipants,
		lockTTL:           time.Duration(cfg.Lock.TTLSeconds) * time.Second,
	}
}

func (s *tournamentService) OptIn(ctx context.Context, factionID string) *apperrors.AppError {
	season, err := s.seasonRepo.GetActiveSeason(ctx)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to load active season")
	}

	schedule, err := s.scheduleRepo.Get(ctx, season.SeasonNumber, season.CurrentWeek)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to load week schedule")
	}

	if !schedule.Tournament.Enabled {
		return apperrors.New(apperrors.CodeInvalidInput, "tournaments are disabled for this week")
	}
	if schedule.Tournament.BracketGenerated {
		return warerrors.BracketAlreadyGeneratedError(season.SeasonNumber, season.CurrentWeek)
	}

	for i := range schedule.Tournament.Participants {
		if schedule.Tournament.Participants[i].FactionID == factionID {
			return nil
		}
	}

	factionRating, appErr := s.ratingService.GetRating(ctx, factionID)
	if appErr != nil {
		return appErr
	}

	entry := models.TournamentEntry{
		FactionID:    factionID,
		Tier:         factionRating.Tier,
		PowerRating:  factionRating.Total,
		OptedIn:      true,
		RegisteredAt: time.Now().UTC(),
	}

	if err := s.scheduleRepo.AddTournamentParticipant(ctx, season.SeasonNumber, season.CurrentWeek, entry); err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to register tournament participant")
	}

	s.logger.Info("tournament opt-in",
		"faction_id", factionID,
		"tier", entry.Tier,
		"power_rating", entry.PowerRating,
		"season", season.SeasonNumber,
		"week", season.CurrentWeek,
	)
	return nil
}

func (s *tournamentService) RunBracketGeneration(ctx context.Context, now time.Time) *apperrors.AppError {
	if !s.enabled {
		return nil
	}

	now = now.UTC()
	if now.Weekday() != s.generationWeekday || now.Hour() != s.generationHour {
		s.logger.Debug("outside bracket generation window, skipping")
		return nil
	}

	acquired, lockErr := s.locker.Acquire(ctx, bracketGenerationLock, s.lockTTL)
	if lockErr != nil {
		return apperrors.Wrap(lockErr, apperrors.CodeRedisOperationError, "failed to acquire bracket generation lock")
	}
	if !acquired {
		s.logger.Debug("bracket generation lock held by another instance, skipping")
		return nil
	}
	defer s.releaseLock(ctx, bracketGenerationLock)

	season, err := s.seasonRepo.GetActiveSeason(ctx)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to load active season")
	}

	schedule, err := s.scheduleRepo.Get(ctx, season.SeasonNumber, season.CurrentWeek)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to load week schedule")
	}

	if !schedule.Tournament.Enabled || schedule.Tournament.BracketGenerated {
		s.logger.Debug("no brackets to generate",
			"enabled", schedule.Tournament.Enabled,
			"already_generated", schedule.Tournament.BracketGenerated,
		)
		return nil
	}

	matched, appErr := s.matchedFactions(ctx, season.SeasonNumber, season.CurrentWeek)
	if appErr != nil {
		return appErr
	}

	byTier := s.groupParticipants(schedule.Tournament.Participants, matched)
	preference := schedule.Tournament.MatchingPreference

	brackets := make([]models.TournamentBracket, 0, len(byTier))
	for _, tier := range rating.Tiers() {
		seeds := byTier[string(tier)]
		if len(seeds) == 0 {
			continue
		}
		if len(seeds) < s.minParticipants {
			s.logger.Debug("not enough participants for tier bracket",
				"tier", tier,
				"participants", len(seeds),
				"minimum", s.minParticipants,
			)
			continue
		}

		orderSeeds(seeds, preference, now)

		b, buildErr := bracket.Build(string(tier), seeds)
		if buildErr != nil {
			s.logger.Warn("failed to build tier bracket", "tier", tier, "error", buildErr)
			continue
		}
		brackets = append(brackets, *b)
	}

	if len(brackets) == 0 {
		s.logger.Debug("no tier reached the participant minimum, no brackets generated")
		return nil
	}

	saved, err := s.scheduleRepo.SaveBrackets(ctx, season.SeasonNumber, season.CurrentWeek, brackets)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to save brackets")
	}
	if !saved {
		s.logger.Debug("brackets already generated by another instance",
			"season", season.SeasonNumber,
			"week", season.CurrentWeek,
		)
		return nil
	}

	for i := range brackets {
		b := &brackets[i]
		if pubErr := s.eventPublisher.PublishBracketGenerated(ctx, b.Tier, len(b.Matches), bracket.ByeCount(b)); pubErr != nil {
			s.logger.Warn("bracket generated event not delivered", "tier", b.Tier, "error", pubErr)
		}
		s.publishReadyMatches(ctx, b, nil)
	}

	s.logger.Info("tournament brackets generated",
		"season", season.SeasonNumber,
		"week", season.CurrentWeek,
		"tiers", len(brackets),
	)
	return nil
}

func (s *tournamentService) AdvanceMatchWinner(
	ctx context.Context,
	tier string,
	round, position int,
	winnerID string,
) *apperrors.AppError {
	season, err := s.seasonRepo.GetActiveSeason(ctx)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to load active season")
	}

	schedule, err := s.scheduleRepo.Get(ctx, season.SeasonNumber, season.CurrentWeek)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to load week schedule")
	}

	b, appErr := findBracket(schedule, tier)
	if appErr != nil {
		return appErr
	}

	readyBefore := readyMatchKeys(b)

	if advErr := bracket.Advance(b, round, position, winnerID); advErr != nil {
		return apperrors.Wrap(advErr, apperrors.CodeInvalidInput, "failed to advance bracket match")
	}

	if err := s.scheduleRepo.UpdateBrackets(ctx, season.SeasonNumber, season.CurrentWeek, schedule.Tournament.Brackets); err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to store advanced bracket")
	}

	s.logger.Info("bracket match advanced",
		"tier", tier,
		"round", round,
		"position", position,
		"winner_id", winnerID,
		"current_round", b.CurrentRound,
	)

	s.publishReadyMatches(ctx, b, readyBefore)
	return nil
}

func (s *tournamentService) LinkMatchWar(
	ctx context.Context,
	tier string,
	round, position int,
	warID string,
) *apperrors.AppError {
	season, err := s.seasonRepo.GetActiveSeason(ctx)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to load active season")
	}

	schedule, err := s.scheduleRepo.Get(ctx, season.SeasonNumber, season.CurrentWeek)
	if err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to load week schedule")
	}

	b, appErr := findBracket(schedule, tier)
	if appErr != nil {
		return appErr
	}

	match := bracket.MatchAt(b, round, position)
	if match == nil {
		return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("no match at round %d position %d", round, position))
	}
	if match.Status != models.MatchReady {
		return apperrors.New(apperrors.CodeConflict, "match is not ready for a war")
	}

	match.WarID = &warID
	match.Status = models.MatchInProgress

	if err := s.scheduleRepo.UpdateBrackets(ctx, season.SeasonNumber, season.CurrentWeek, schedule.Tournament.Brackets); err != nil {
		return appError(err, apperrors.CodeDatabaseError, "failed to link match war")
	}

	s.logger.Debug("bracket match linked to war",
		"tier", tier,
		"round", round,
		"position", position,
		"war_id", warID,
	)
	return nil
}

// Private methods

// matchedFactions collects every faction already bound to an unresolved
// war this week; they are excluded from bracket seeding.
func (s *tournamentService) matchedFactions(ctx context.Context, seasonNumber, weekNumber int) (map[string]bool, *apperrors.AppError) {
	wars, err := s.warRepo.ListByWeek(ctx, seasonNumber, weekNumber)
	if err != nil {
		return nil, appError(err, apperrors.CodeDatabaseError, "failed to list wars for the week")
	}

	matched := make(map[string]bool)
	for i := range wars {
		if wars[i].Status == models.WarResolved {
			continue
		}
		matched[wars[i].AttackerID] = true
		matched[wars[i].DefenderID] = true
	}
	return matched, nil
}

func (s *tournamentService) groupParticipants(
	participants []models.TournamentEntry,
	matched map[string]bool,
) map[string][]bracket.Seed {
	byTier := make(map[string][]bracket.Seed)
	for i := range participants {
		entry := &participants[i]
		if !entry.OptedIn {
			continue
		}
		if matched[entry.FactionID] {
			s.logger.Debug("participant already matched this week, excluding from bracket",
				"faction_id", entry.FactionID,
			)
			continue
		}
		if entry.Tier == "" {
			s.logger.Warn("participant has no rating snapshot, excluding from bracket",
				"faction_id", entry.FactionID,
			)
			continue
		}
		byTier[entry.Tier] = append(byTier[entry.Tier], bracket.Seed{
			FactionID:   entry.FactionID,
			PowerRating: entry.PowerRating,
		})
	}
	return byTier
}

func (s *tournamentService) publishReadyMatches(ctx context.Context, b *models.TournamentBracket, alreadyReady map[string]bool) {
	for i := range b.Matches {
		m := &b.Matches[i]
		if m.Status != models.MatchReady {
			continue
		}
		if alreadyReady[matchKey(m.Round, m.Position)] {
			continue
		}
		if pubErr := s.eventPublisher.PublishMatchReady(ctx, b.Tier, m.Round, m.Position, *m.FactionA, *m.FactionB); pubErr != nil {
			s.logger.Warn("match ready event not delivered",
				"tier", b.Tier,
				"round", m.Round,
				"position", m.Position,
				"error", pubErr,
			)
		}
	}
}

func (s *tournamentService) releaseLock(ctx context.Context, name string) {
	if err := s.locker.Release(ctx, name); err != nil {
		s.logger.Warn("failed to release lock", "lock", name, "error", err)
	}
}

// orderSeeds arranges participants by the week's matching preference.
// Swiss pairing needs round-by-round history that a single-elimination
// week does not keep, so it seeds by power rating like the default.
func orderSeeds(seeds []bracket.Seed, preference string, now time.Time) {
	switch preference {
	case models.MatchingRandom:
		rng := rand.New(rand.NewSource(now.UnixNano()))
		rng.Shuffle(len(seeds), func(i, j int) {
			seeds[i], seeds[j] = seeds[j], seeds[i]
		})
	default:
		sort.Slice(seeds, func(i, j int) bool {
			if seeds[i].PowerRating != seeds[j].PowerRating {
				return seeds[i].PowerRating > seeds[j].PowerRating
			}
			return seeds[i].FactionID < seeds[j].FactionID
		})
	}
}

func findBracket(schedule *models.WeekSchedule, tier string) (*models.TournamentBracket, *apperrors.AppError) {
	for i := range schedule.Tournament.Brackets {
		if schedule.Tournament.Brackets[i].Tier == tier {
			return &schedule.Tournament.Brackets[i], nil
		}
	}
	return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("no bracket for tier %s", tier))
}

func readyMatchKeys(b *models.TournamentBracket) map[string]bool {
	keys := make(map[string]bool)
	for i := range b.Matches {
		if b.Matches[i].Status == models.MatchReady {
			keys[matchKey(b.Matches[i].Round, b.Matches[i].Position)] = true
		}
	}
	return keys
}

func matchKey(round, position int) string {
	return fmt.Sprintf("%d:%d", round, position)
}
