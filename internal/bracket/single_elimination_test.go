package bracket

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaanbarutcu/warseason/models"
)

func seedsOf(ratings ...int) []Seed {
	seeds := make([]Seed, len(ratings))
	for i, r := range ratings {
		seeds[i] = Seed{FactionID: fmt.Sprintf("faction-%d", r), PowerRating: r}
	}
	return seeds
}

func TestBuildRejectsTooFewParticipants(t *testing.T) {
	_, err := Build("gold", seedsOf(500))
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)
}

func TestBuildFiveParticipants(t *testing.T) {
	seeds := seedsOf(500, 420, 390, 300, 250)
	b, err := Build("gold", seeds)
	require.NoError(t, err)

	assert.Equal(t, 3, b.TotalRounds)

	round1 := matchesOf(b, 1)
	require.Len(t, round1, 3)

	// Top seed gets the unpaired slot.
	bye := round1[0]
	assert.Equal(t, models.MatchBye, bye.Status)
	require.NotNil(t, bye.FactionA)
	assert.Equal(t, seeds[0].FactionID, *bye.FactionA)
	assert.Nil(t, bye.FactionB)
	require.NotNil(t, bye.WinnerID)
	assert.Equal(t, seeds[0].FactionID, *bye.WinnerID)

	// Remaining four pair strongest against weakest.
	assert.Equal(t, seeds[1].FactionID, *round1[1].FactionA)
	assert.Equal(t, seeds[4].FactionID, *round1[1].FactionB)
	assert.Equal(t, seeds[2].FactionID, *round1[2].FactionA)
	assert.Equal(t, seeds[3].FactionID, *round1[2].FactionB)
	assert.Equal(t, models.MatchReady, round1[1].Status)
	assert.Equal(t, models.MatchReady, round1[2].Status)

	// ceil(5/4)=2 and ceil(5/8)=1 matches in later rounds.
	assert.Len(t, matchesOf(b, 2), 2)
	assert.Len(t, matchesOf(b, 3), 1)

	// The bye occupant is already waiting in round 2.
	r2 := matchesOf(b, 2)
	require.NotNil(t, r2[0].FactionA)
	assert.Equal(t, seeds[0].FactionID, *r2[0].FactionA)
}

func TestBuildRoundSizes(t *testing.T) {
	cases := []struct {
		n      int
		rounds int
		sizes  []int
	}{
		{2, 1, []int{1}},
		{3, 2, []int{2, 1}},
		{4, 2, []int{2, 1}},
		{6, 3, []int{3, 2, 1}},
		{8, 3, []int{4, 2, 1}},
		{9, 4, []int{5, 3, 2, 1}},
	}

	for _, c := range cases {
		ratings := make([]int, c.n)
		for i := range ratings {
			ratings[i] = 1000 - i*10
		}
		b, err := Build("silver", seedsOf(ratings...))
		require.NoError(t, err)

		assert.Equal(t, c.rounds, b.TotalRounds, "n=%d", c.n)
		for r := 1; r <= c.rounds; r++ {
			assert.Len(t, matchesOf(b, r), c.sizes[r-1], "n=%d round=%d", c.n, r)
		}
	}
}

func TestBuildEvenCountHasNoFirstRoundByes(t *testing.T) {
	b, err := Build("gold", seedsOf(800, 700, 600, 500, 400, 300, 200, 100))
	require.NoError(t, err)

	for _, m := range matchesOf(b, 1) {
		assert.Equal(t, models.MatchReady, m.Status)
		assert.NotNil(t, m.FactionA)
		assert.NotNil(t, m.FactionB)
	}
}

func TestEachParticipantAppearsOncePerRound(t *testing.T) {
	seeds := seedsOf(900, 800, 700, 600, 500, 400, 300)
	b, err := Build("gold", seeds)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, m := range matchesOf(b, 1) {
		if m.FactionA != nil {
			seen[*m.FactionA]++
		}
		if m.FactionB != nil {
			seen[*m.FactionB]++
		}
	}

	require.Len(t, seen, len(seeds))
	for id, count := range seen {
		assert.Equal(t, 1, count, "faction %s", id)
	}
}

func TestAdvanceReadiesNextRoundMatch(t *testing.T) {
	seeds := seedsOf(500, 420, 390, 300, 250)
	b, err := Build("gold", seeds)
	require.NoError(t, err)

	// 420 beats 250; round 2 match 1 now has the bye occupant and the winner.
	require.NoError(t, Advance(b, 1, 2, seeds[1].FactionID))

	next := MatchAt(b, 2, 1)
	require.NotNil(t, next.FactionA)
	require.NotNil(t, next.FactionB)
	assert.Equal(t, seeds[0].FactionID, *next.FactionA)
	assert.Equal(t, seeds[1].FactionID, *next.FactionB)
	assert.Equal(t, models.MatchReady, next.Status)
}

func TestAdvanceStructuralByeCascades(t *testing.T) {
	seeds := seedsOf(500, 420, 390, 300, 250)
	b, err := Build("gold", seeds)
	require.NoError(t, err)

	// 390 beats 300. Round 2 match 2 has a single feeder, so its
	// occupant byes straight into the final.
	require.NoError(t, Advance(b, 1, 3, seeds[2].FactionID))

	r2bye := MatchAt(b, 2, 2)
	assert.Equal(t, models.MatchBye, r2bye.Status)
	require.NotNil(t, r2bye.WinnerID)
	assert.Equal(t, seeds[2].FactionID, *r2bye.WinnerID)

	final := MatchAt(b, 3, 1)
	require.NotNil(t, final.FactionB)
	assert.Equal(t, seeds[2].FactionID, *final.FactionB)
}

func TestAdvanceRejectsNonParticipant(t *testing.T) {
	b, err := Build("gold", seedsOf(500, 400))
	require.NoError(t, err)

	assert.Error(t, Advance(b, 1, 1, "someone-else"))
}

func TestAdvanceTracksCurrentRound(t *testing.T) {
	seeds := seedsOf(800, 700, 600, 500)
	b, err := Build("gold", seeds)
	require.NoError(t, err)
	assert.Equal(t, 1, b.CurrentRound)

	require.NoError(t, Advance(b, 1, 1, seeds[0].FactionID))
	assert.Equal(t, 1, b.CurrentRound)

	require.NoError(t, Advance(b, 1, 2, seeds[1].FactionID))
	assert.Equal(t, 2, b.CurrentRound)
}

func matchesOf(b *models.TournamentBracket, round int) []models.BracketMatch {
	var out []models.BracketMatch
	for _, m := range b.Matches {
		if m.Round == round {
			out = append(out, m)
		}
	}
	return out
}
