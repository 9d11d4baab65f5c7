package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kaanbarutcu/warseason/errors"
	"github.com/kaanbarutcu/warseason/internal/phase"
	"github.com/kaanbarutcu/warseason/internal/repository"
	"github.com/kaanbarutcu/warseason/models"
)

type warFixture struct {
	seasons      *fakeSeasonRepo
	schedules    *fakeScheduleRepo
	wars         *fakeWarRepo
	ratings      *fakeRatingRepo
	cooldowns    *fakeCooldowns
	transactions *fakeTransactionRepo
	service      WarService
}

func newWarFixture() *warFixture {
	cfg := testConfig()
	log := testLogger()

	f := &warFixture{
		seasons:      newFakeSeasonRepo(),
		schedules:    newFakeScheduleRepo(),
		wars:         newFakeWarRepo(),
		ratings:      newFakeRatingRepo(),
		cooldowns:    newFakeCooldowns(),
		transactions: &fakeTransactionRepo{},
	}

	ratingSvc := NewRatingService(f.ratings, newFakeSnapshots(), newFakeLeaderboard(), newFakeLocker(), log, cfg)
	f.service = NewWarService(
		f.seasons, f.schedules, f.wars, f.transactions,
		ratingSvc, f.cooldowns, log, cfg,
	)

	f.seasons.seasons[1] = &models.Season{
		SeasonNumber: 1,
		Status:       models.SeasonActive,
		StartsAt:     testMonday,
		LengthWeeks:  2,
		CurrentWeek:  1,
	}
	return f
}

func (f *warFixture) seedSchedule(phaseName string) {
	b := phase.ComputeBoundaries(testMonday)
	f.schedules.schedules[weekKey(1, 1)] = &models.WeekSchedule{
		SeasonNumber:     1,
		WeekNumber:       1,
		Phase:            phaseName,
		DeclarationStart: b.DeclarationStart,
		DeclarationEnd:   b.DeclarationEnd,
		ResolutionStart:  b.ResolutionStart,
		ResolutionEnd:    b.ResolutionEnd,
		DeclaredWarIDs:   []string{},
		ActiveWarIDs:     []string{},
		ResolvedWarIDs:   []string{},
	}
}

func (f *warFixture) seedWar(warID, attackerID, defenderID, status string) {
	f.wars.put(models.War{
		WarID:        warID,
		SeasonNumber: 1,
		WeekNumber:   1,
		AttackerID:   attackerID,
		DefenderID:   defenderID,
		Status:       status,
	})
}

func (f *warFixture) seedRating(factionID string, total int, tier string) {
	f.ratings.put(models.PowerRating{
		FactionID:  factionID,
		Total:      total,
		Tier:       tier,
		ComputedAt: time.Now().UTC(),
	})
}

func TestEligibilityAllowedDuringDeclaration(t *testing.T) {
	f := newWarFixture()
	f.seedSchedule(phase.Declaration.String())

	result, appErr := f.service.CheckDeclarationEligibility(context.Background(), "faction-a")
	require.Nil(t, appErr)

	assert.True(t, result.Allowed)
	assert.Equal(t, phase.Declaration.String(), result.Phase)
	assert.Empty(t, result.Reasons)
}

func TestEligibilityCollectsEveryReason(t *testing.T) {
	f := newWarFixture()
	f.seedSchedule(phase.Active.String())
	f.cooldowns.remaining["faction-a"] = 90 * time.Minute
	f.seedWar("war-1", "faction-a", "faction-b", models.WarResolved)
	f.seedWar("war-2", "faction-c", "faction-a", models.WarResolved)
	f.seedWar("war-3", "faction-a", "faction-d", models.WarActive)

	result, appErr := f.service.CheckDeclarationEligibility(context.Background(), "faction-a")
	require.Nil(t, appErr)

	assert.False(t, result.Allowed)
	require.Len(t, result.Reasons, 4)
	assert.Contains(t, result.Reasons[0], "declarations are closed during the ACTIVE phase")
	assert.Contains(t, result.Reasons[1], "cooldown for another 1h30m")
	assert.Contains(t, result.Reasons[2], "weekly war limit of 3 reached")
	assert.Contains(t, result.Reasons[3], "unresolved war this week")
}

func TestDeclareWarPersistsWarAndSchedule(t *testing.T) {
	f := newWarFixture()
	f.seedSchedule(phase.Declaration.String())
	f.seedRating("faction-a", 3000, "gold")
	f.seedRating("faction-b", 3200, "gold")

	war, appErr := f.service.DeclareWar(context.Background(), "faction-a", "faction-b")
	require.Nil(t, appErr)

	assert.NotEmpty(t, war.WarID)
	assert.Equal(t, models.WarDeclared, war.Status)
	assert.Equal(t, 1, war.SeasonNumber)
	assert.Equal(t, 1, war.WeekNumber)

	stored := f.wars.wars[war.WarID]
	require.NotNil(t, stored)
	assert.Equal(t, "faction-a", stored.AttackerID)
	assert.Equal(t, "faction-b", stored.DefenderID)

	assert.Equal(t, []string{war.WarID}, f.schedules.stored(1, 1).DeclaredWarIDs)
	assert.Equal(t, 1, f.transactions.executed)
}

func TestDeclareWarOnSelfRejected(t *testing.T) {
	f := newWarFixture()
	f.seedSchedule(phase.Declaration.String())

	_, appErr := f.service.DeclareWar(context.Background(), "faction-a", "faction-a")
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeDeclarationRejected, appErr.Code)
}

func TestDeclareWarRejectsUnfairMatch(t *testing.T) {
	f := newWarFixture()
	f.seedSchedule(phase.Declaration.String())
	f.seedRating("faction-a", 800, "bronze")
	f.seedRating("faction-b", 3000, "gold")

	_, appErr := f.service.DeclareWar(context.Background(), "faction-a", "faction-b")
	require.NotNil(t, appErr)

	assert.Equal(t, apperrors.CodeMatchmakingRejected, appErr.Code)
	assert.Empty(t, f.wars.wars)
	assert.Equal(t, 0, f.transactions.executed)
}

func TestDeclareWarRejectsBusyDefender(t *testing.T) {
	f := newWarFixture()
	f.seedSchedule(phase.Declaration.String())
	f.seedRating("faction-a", 3000, "gold")
	f.seedRating("faction-b", 3200, "gold")
	f.seedWar("war-1", "faction-b", "faction-c", models.WarDeclared)

	_, appErr := f.service.DeclareWar(context.Background(), "faction-a", "faction-b")
	require.NotNil(t, appErr)

	assert.Equal(t, apperrors.CodeDeclarationRejected, appErr.Code)
	assert.Contains(t, appErr.Message, "defender already has an unresolved war")
}

func TestApplyCombatScoreAccumulates(t *testing.T) {
	f := newWarFixture()
	f.seedWar("war-1", "faction-a", "faction-b", models.WarActive)

	require.Nil(t, f.service.ApplyCombatScore(context.Background(), "war-1", repository.SideAttacker, 50))
	require.Nil(t, f.service.ApplyCombatScore(context.Background(), "war-1", repository.SideAttacker, 25))
	require.Nil(t, f.service.ApplyCombatScore(context.Background(), "war-1", repository.SideDefender, 30))

	stored := f.wars.wars["war-1"]
	assert.Equal(t, int64(75), stored.AttackerScore)
	assert.Equal(t, int64(30), stored.DefenderScore)
}

func TestApplyCombatScoreDroppedOutsideActiveWindow(t *testing.T) {
	f := newWarFixture()
	f.seedWar("war-1", "faction-a", "faction-b", models.WarDeclared)

	require.Nil(t, f.service.ApplyCombatScore(context.Background(), "war-1", repository.SideAttacker, 50))

	assert.Equal(t, int64(0), f.wars.wars["war-1"].AttackerScore)
}
