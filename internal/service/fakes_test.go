package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kaanbarutcu/warseason/cache"
	"github.com/kaanbarutcu/warseason/config"
	"github.com/kaanbarutcu/warseason/database"
	apperrors "github.com/kaanbarutcu/warseason/errors"
	"github.com/kaanbarutcu/warseason/internal/repository"
	"github.com/kaanbarutcu/warseason/logger"
	"github.com/kaanbarutcu/warseason/models"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "console", ServiceName: "test"})
}

func testConfig() *config.Config {
	return &config.Config{
		Season: config.SeasonConfig{LengthWeeks: 2},
		War:    config.WarConfig{MaxWarsPerWeek: 3, CooldownHours: 24},
		Matchmaking: config.MatchmakingConfig{
			AllowAdjacentTiers: true,
			MaxPowerGapPercent: 0.35,
		},
		Tournament: config.TournamentConfig{
			Enabled:            true,
			GenerationWeekday:  4,
			GenerationHour:     23,
			MinParticipants:    2,
			MatchingPreference: models.MatchingPowerRating,
		},
		Rating: config.RatingConfig{StaleAfterMinutes: 360},
		Lock:   config.LockConfig{TTLSeconds: 360},
	}
}

// Season repository

type fakeSeasonRepo struct {
	seasons   map[int]*models.Season
	standings map[string]*models.Standing
}

func newFakeSeasonRepo() *fakeSeasonRepo {
	return &fakeSeasonRepo{
		seasons:   map[int]*models.Season{},
		standings: map[string]*models.Standing{},
	}
}

func (r *fakeSeasonRepo) Create(_ context.Context, season *models.Season) error {
	if _, ok := r.seasons[season.SeasonNumber]; ok {
		return apperrors.New(apperrors.CodeAlreadyExists, "season already exists")
	}
	cp := *season
	r.seasons[season.SeasonNumber] = &cp
	return nil
}

func (r *fakeSeasonRepo) GetActiveSeason(_ context.Context) (*models.Season, error) {
	var active *models.Season
	for _, season := range r.seasons {
		if season.Status != models.SeasonActive {
			continue
		}
		if active == nil || season.SeasonNumber < active.SeasonNumber {
			active = season
		}
	}
	if active == nil {
		return nil, apperrors.New(apperrors.CodeNoActiveSeason, "no active season")
	}
	cp := *active
	return &cp, nil
}

func (r *fakeSeasonRepo) GetByNumber(_ context.Context, seasonNumber int) (*models.Season, error) {
	season, ok := r.seasons[seasonNumber]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "season not found")
	}
	cp := *season
	return &cp, nil
}

func (r *fakeSeasonRepo) SetCurrentWeek(_ context.Context, seasonNumber, weekNumber int) error {
	season, ok := r.seasons[seasonNumber]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "season not found")
	}
	season.CurrentWeek = weekNumber
	return nil
}

func (r *fakeSeasonRepo) Conclude(_ context.Context, seasonNumber int, concludedAt time.Time) (bool, error) {
	season, ok := r.seasons[seasonNumber]
	if !ok || season.Status != models.SeasonActive {
		return false, nil
	}
	season.Status = models.SeasonConcluded
	season.ConcludedAt = concludedAt
	return true, nil
}

func (r *fakeSeasonRepo) AddStandingDelta(
	_ context.Context,
	seasonNumber int,
	factionID string,
	wins, losses, draws, score int,
) error {
	key := fmt.Sprintf("%d/%s", seasonNumber, factionID)
	standing, ok := r.standings[key]
	if !ok {
		standing = &models.Standing{SeasonNumber: seasonNumber, FactionID: factionID}
		r.standings[key] = standing
	}
	standing.Wins += wins
	standing.Losses += losses
	standing.Draws += draws
	standing.Score += score
	return nil
}

func (r *fakeSeasonRepo) ListStandings(_ context.Context, seasonNumber int) ([]models.Standing, error) {
	var out []models.Standing
	for _, standing := range r.standings {
		if standing.SeasonNumber == seasonNumber {
			out = append(out, *standing)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FactionID < out[j].FactionID })
	return out, nil
}

func (r *fakeSeasonRepo) standing(seasonNumber int, factionID string) *models.Standing {
	return r.standings[fmt.Sprintf("%d/%s", seasonNumber, factionID)]
}

// Schedule repository

type fakeScheduleRepo struct {
	schedules map[string]*models.WeekSchedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{schedules: map[string]*models.WeekSchedule{}}
}

func weekKey(seasonNumber, weekNumber int) string {
	return fmt.Sprintf("%d/%d", seasonNumber, weekNumber)
}

func (r *fakeScheduleRepo) Create(_ context.Context, schedule *models.WeekSchedule) error {
	key := weekKey(schedule.SeasonNumber, schedule.WeekNumber)
	if _, ok := r.schedules[key]; ok {
		return apperrors.New(apperrors.CodeAlreadyExists, "week schedule already exists")
	}
	cp := *schedule
	r.schedules[key] = &cp
	return nil
}

func (r *fakeScheduleRepo) Get(_ context.Context, seasonNumber, weekNumber int) (*models.WeekSchedule, error) {
	schedule, ok := r.schedules[weekKey(seasonNumber, weekNumber)]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "week schedule not found")
	}
	cp := *schedule
	return &cp, nil
}

func (r *fakeScheduleRepo) UpdatePhase(_ context.Context, seasonNumber, weekNumber int, fromPhase, toPhase string) (bool, error) {
	schedule, ok := r.schedules[weekKey(seasonNumber, weekNumber)]
	if !ok || schedule.Phase != fromPhase {
		return false, nil
	}
	schedule.Phase = toPhase
	return true, nil
}

func (r *fakeScheduleRepo) SetWarSets(_ context.Context, seasonNumber, weekNumber int, declared, active, resolved []string) error {
	schedule, ok := r.schedules[weekKey(seasonNumber, weekNumber)]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "week schedule not found")
	}
	schedule.DeclaredWarIDs = declared
	schedule.ActiveWarIDs = active
	schedule.ResolvedWarIDs = resolved
	return nil
}

func (r *fakeScheduleRepo) AddTournamentParticipant(_ context.Context, seasonNumber, weekNumber int, entry models.TournamentEntry) error {
	schedule, ok := r.schedules[weekKey(seasonNumber, weekNumber)]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "week schedule not found")
	}
	schedule.Tournament.Participants = append(schedule.Tournament.Participants, entry)
	return nil
}

func (r *fakeScheduleRepo) SaveBrackets(_ context.Context, seasonNumber, weekNumber int, brackets []models.TournamentBracket) (bool, error) {
	schedule, ok := r.schedules[weekKey(seasonNumber, weekNumber)]
	if !ok {
		return false, apperrors.New(apperrors.CodeNotFound, "week schedule not found")
	}
	if schedule.Tournament.BracketGenerated {
		return false, nil
	}
	schedule.Tournament.Brackets = brackets
	schedule.Tournament.BracketGenerated = true
	return true, nil
}

func (r *fakeScheduleRepo) UpdateBrackets(_ context.Context, seasonNumber, weekNumber int, brackets []models.TournamentBracket) error {
	schedule, ok := r.schedules[weekKey(seasonNumber, weekNumber)]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "week schedule not found")
	}
	schedule.Tournament.Brackets = brackets
	return nil
}

// The fake applies the append immediately; transaction atomicity is the
// real store's concern, not the service logic under test.
func (r *fakeScheduleRepo) GetTransactionForDeclaredWar(seasonNumber, weekNumber int, warID string) types.Update {
	if schedule, ok := r.schedules[weekKey(seasonNumber, weekNumber)]; ok {
		schedule.DeclaredWarIDs = append(schedule.DeclaredWarIDs, warID)
	}
	return types.Update{}
}

func (r *fakeScheduleRepo) stored(seasonNumber, weekNumber int) *models.WeekSchedule {
	return r.schedules[weekKey(seasonNumber, weekNumber)]
}

// War repository

type fakeWarRepo struct {
	wars        map[string]*models.War
	failResolve bool
}

func newFakeWarRepo() *fakeWarRepo {
	return &fakeWarRepo{wars: map[string]*models.War{}}
}

func (r *fakeWarRepo) put(war models.War) {
	r.wars[war.WarID] = &war
}

func (r *fakeWarRepo) GetById(_ context.Context, warID string) (*models.War, error) {
	war, ok := r.wars[warID]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "war not found")
	}
	cp := *war
	return &cp, nil
}

func (r *fakeWarRepo) ListByWeek(_ context.Context, seasonNumber, weekNumber int) ([]models.War, error) {
	return r.list(seasonNumber, weekNumber, ""), nil
}

func (r *fakeWarRepo) ListByWeekAndStatus(_ context.Context, seasonNumber, weekNumber int, status string) ([]models.War, error) {
	return r.list(seasonNumber, weekNumber, status), nil
}

func (r *fakeWarRepo) list(seasonNumber, weekNumber int, status string) []models.War {
	var out []models.War
	for _, war := range r.wars {
		if war.SeasonNumber != seasonNumber || war.WeekNumber != weekNumber {
			continue
		}
		if status != "" && war.Status != status {
			continue
		}
		out = append(out, *war)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarID < out[j].WarID })
	return out
}

func (r *fakeWarRepo) UpdateStatus(_ context.Context, war *models.War, fromStatus, toStatus string) (bool, error) {
	stored, ok := r.wars[war.WarID]
	if !ok || stored.Status != fromStatus {
		return false, nil
	}
	stored.Status = toStatus
	if toStatus == models.WarActive {
		stored.StartedAt = time.Now().UTC()
	}
	return true, nil
}

func (r *fakeWarRepo) ApplyScore(_ context.Context, warID, side string, points int64) (*models.War, error) {
	stored, ok := r.wars[warID]
	if !ok || stored.Status != models.WarActive {
		return nil, nil
	}
	if side == repository.SideDefender {
		stored.DefenderScore += points
	} else {
		stored.AttackerScore += points
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeWarRepo) Resolve(_ context.Context, war *models.War, outcome string, resolvedAt time.Time) (bool, error) {
	if r.failResolve {
		return false, apperrors.New(apperrors.CodeDatabaseError, "resolve failed")
	}
	stored, ok := r.wars[war.WarID]
	if !ok || stored.Status != models.WarActive {
		return false, nil
	}
	stored.Status = models.WarResolved
	stored.Outcome = outcome
	stored.ResolvedAt = resolvedAt
	return true, nil
}

func (r *fakeWarRepo) GetTransactionForCreate(war *models.War) (types.Put, error) {
	war.DeclaredAt = time.Now().UTC()
	r.put(*war)
	return types.Put{}, nil
}

// Rating repository

type fakeRatingRepo struct {
	ratings map[string]*models.PowerRating
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{ratings: map[string]*models.PowerRating{}}
}

func (r *fakeRatingRepo) put(rating models.PowerRating) {
	r.ratings[rating.FactionID] = &rating
}

func (r *fakeRatingRepo) Get(_ context.Context, factionID string) (*models.PowerRating, error) {
	rating, ok := r.ratings[factionID]
	if !ok {
		return nil, nil
	}
	cp := *rating
	return &cp, nil
}

func (r *fakeRatingRepo) Put(_ context.Context, rating *models.PowerRating) error {
	cp := *rating
	r.ratings[rating.FactionID] = &cp
	return nil
}

func (r *fakeRatingRepo) ListStale(_ context.Context, olderThan time.Time, limit int32) ([]models.PowerRating, error) {
	var out []models.PowerRating
	for _, rating := range r.ratings {
		if rating.ComputedAt.Before(olderThan) {
			out = append(out, *rating)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FactionID < out[j].FactionID })
	if limit > 0 && len(out) > int(limit) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRatingRepo) ListAll(_ context.Context) ([]models.PowerRating, error) {
	var out []models.PowerRating
	for _, rating := range r.ratings {
		out = append(out, *rating)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FactionID < out[j].FactionID })
	return out, nil
}

func (r *fakeRatingRepo) RecordResult(_ context.Context, factionID string, won bool) error {
	rating, ok := r.ratings[factionID]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "rating not found")
	}
	if won {
		rating.SeasonWins++
	} else {
		rating.SeasonLosses++
	}
	return nil
}

func (r *fakeRatingRepo) ResetSeasonCounters(_ context.Context, factionID string) error {
	rating, ok := r.ratings[factionID]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "rating not found")
	}
	rating.SeasonWins = 0
	rating.SeasonLosses = 0
	return nil
}

// Faction snapshots

type fakeSnapshots struct {
	snapshots map[string]*models.FactionSnapshot
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{snapshots: map[string]*models.FactionSnapshot{}}
}

func (p *fakeSnapshots) GetSnapshot(_ context.Context, factionID string) (*models.FactionSnapshot, error) {
	snapshot, ok := p.snapshots[factionID]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "faction snapshot not found")
	}
	cp := *snapshot
	return &cp, nil
}

// Leaderboard

type leaderboardRecord struct {
	Tier  string
	Total int
}

type fakeLeaderboard struct {
	records map[string]leaderboardRecord
	updates int
}

func newFakeLeaderboard() *fakeLeaderboard {
	return &fakeLeaderboard{records: map[string]leaderboardRecord{}}
}

func (l *fakeLeaderboard) UpdateRating(_ context.Context, factionID, tier string, total int, _ []string) error {
	l.records[factionID] = leaderboardRecord{Tier: tier, Total: total}
	l.updates++
	return nil
}

func (l *fakeLeaderboard) GetGlobalLeaderboard(_ context.Context, limit int64) ([]cache.LeaderboardEntry, error) {
	return l.entries("", limit), nil
}

func (l *fakeLeaderboard) GetTierLeaderboard(_ context.Context, tier string, limit int64) ([]cache.LeaderboardEntry, error) {
	return l.entries(tier, limit), nil
}

func (l *fakeLeaderboard) GetTierCounts(_ context.Context, tiers []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(tiers))
	for _, tier := range tiers {
		counts[tier] = 0
	}
	for _, record := range l.records {
		counts[record.Tier]++
	}
	return counts, nil
}

func (l *fakeLeaderboard) entries(tier string, limit int64) []cache.LeaderboardEntry {
	var out []cache.LeaderboardEntry
	for factionID, record := range l.records {
		if tier != "" && record.Tier != tier {
			continue
		}
		out = append(out, cache.LeaderboardEntry{FactionID: factionID, Rating: record.Total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].FactionID < out[j].FactionID
	})
	if limit > 0 && len(out) > int(limit) {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Locker

type fakeLocker struct {
	held     map[string]bool
	denied   map[string]bool
	releases []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}, denied: map[string]bool{}}
}

func (l *fakeLocker) Acquire(_ context.Context, name string, _ time.Duration) (bool, error) {
	if l.denied[name] || l.held[name] {
		return false, nil
	}
	l.held[name] = true
	return true, nil
}

func (l *fakeLocker) Release(_ context.Context, name string) error {
	delete(l.held, name)
	l.releases = append(l.releases, name)
	return nil
}

func (l *fakeLocker) IsHeld(_ context.Context, name string) (bool, error) {
	return l.held[name], nil
}

// Cooldowns

type fakeCooldowns struct {
	remaining map[string]time.Duration
}

func newFakeCooldowns() *fakeCooldowns {
	return &fakeCooldowns{remaining: map[string]time.Duration{}}
}

func (c *fakeCooldowns) Set(_ context.Context, factionID string, d time.Duration) error {
	c.remaining[factionID] = d
	return nil
}

func (c *fakeCooldowns) Active(_ context.Context, factionID string) (bool, time.Duration, error) {
	d, ok := c.remaining[factionID]
	if !ok || d <= 0 {
		return false, 0, nil
	}
	return true, d, nil
}

func (c *fakeCooldowns) Clear(_ context.Context, factionID string) error {
	delete(c.remaining, factionID)
	return nil
}

// Event publisher

type publishedPhaseChange struct {
	From, To     string
	Season, Week int
}

type publishedWarResolved struct {
	WarID, Outcome string
}

type publishedBracket struct {
	Tier          string
	Matches, Byes int
}

type publishedMatchReady struct {
	Tier               string
	Round, Position    int
	FactionA, FactionB string
}

type fakePublisher struct {
	phaseChanges []publishedPhaseChange
	warsResolved []publishedWarResolved
	brackets     []publishedBracket
	matchesReady []publishedMatchReady
}

func (p *fakePublisher) PublishPhaseChanged(_ context.Context, previousPhase, newPhase string, seasonNumber, weekNumber int) error {
	p.phaseChanges = append(p.phaseChanges, publishedPhaseChange{previousPhase, newPhase, seasonNumber, weekNumber})
	return nil
}

func (p *fakePublisher) PublishWarResolved(_ context.Context, warID string, _, _ int, outcome, _, _ string) error {
	p.warsResolved = append(p.warsResolved, publishedWarResolved{warID, outcome})
	return nil
}

func (p *fakePublisher) PublishBracketGenerated(_ context.Context, tier string, matchCount, byeCount int) error {
	p.brackets = append(p.brackets, publishedBracket{tier, matchCount, byeCount})
	return nil
}

func (p *fakePublisher) PublishMatchReady(_ context.Context, tier string, round, position int, factionA, factionB string) error {
	p.matchesReady = append(p.matchesReady, publishedMatchReady{tier, round, position, factionA, factionB})
	return nil
}

// Transactions

type fakeTransactionRepo struct {
	executed int
	err      error
}

func (r *fakeTransactionRepo) Execute(_ context.Context, _ *database.TransactionBuilder) error {
	r.executed++
	return r.err
}
