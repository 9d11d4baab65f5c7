package bracket

import (
	"errors"
	"math"

	"github.com/kaanbarutcu/warseason/models"
)

// Seed is one bracket participant in seeding order (index 0 = top seed).
type Seed struct {
	FactionID   string
	PowerRating int
}

var ErrNotEnoughParticipants = errors.New("bracket needs at least 2 participants")

// Build constructs a single-elimination bracket from an already-seeded
// participant list. Round r holds exactly ceil(n / 2^r) matches; round 1
// pairs strongest against weakest, and an odd participant count gives the
// top seed a bye that auto-advances without a contest. Later rounds are
// pre-created as pending matches whose slots fill as winners advance.
func Build(tier string, seeds []Seed) (*models.TournamentBracket, error) {
	n := len(seeds)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}

	totalRounds := int(math.Ceil(math.Log2(float64(n))))

	b := &models.TournamentBracket{
		Tier:         tier,
		TotalRounds:  totalRounds,
		CurrentRound: 1,
	}

	for r := 1; r <= totalRounds; r++ {
		count := matchesInRound(n, r)
		for p := 1; p <= count; p++ {
			b.Matches = append(b.Matches, models.BracketMatch{
				Round:    r,
				Position: p,
				Status:   models.MatchPending,
			})
		}
	}

	paired := seeds
	if n%2 == 1 {
		// The unpaired slot goes to the top seed.
		bye := MatchAt(b, 1, 1)
		bye.FactionA = strPtr(seeds[0].FactionID)
		bye.WinnerID = strPtr(seeds[0].FactionID)
		bye.Status = models.MatchBye
		paired = seeds[1:]
	}

	m := len(paired)
	slot := matchesInRound(n, 1) - m/2 + 1
	for i := 0; i < m/2; i++ {
		match := MatchAt(b, 1, slot+i)
		match.FactionA = strPtr(paired[i].FactionID)
		match.FactionB = strPtr(paired[m-1-i].FactionID)
		match.Status = models.MatchReady
	}

	// Byes cascade their occupant into the next round immediately.
	for p := 1; p <= matchesInRound(n, 1); p++ {
		match := MatchAt(b, 1, p)
		if match.Status == models.MatchBye {
			fillNextRound(b, 1, p, *match.WinnerID)
		}
	}

	return b, nil
}

// Advance records a match winner and feeds it into the next round. When
// the receiving match gains both participants it becomes ready, which is
// the trigger point for instantiating an actual war for it.
func Advance(b *models.TournamentBracket, round, position int, winnerID string) error {
	match := MatchAt(b, round, position)
	if match == nil {
		return errors.New("no such match")
	}
	if match.FactionA == nil || match.FactionB == nil {
		return errors.New("match is missing a participant")
	}
	if *match.FactionA != winnerID && *match.FactionB != winnerID {
		return errors.New("winner is not a participant of the match")
	}

	match.WinnerID = strPtr(winnerID)
	match.Status = models.MatchComplete

	if round < b.TotalRounds {
		fillNextRound(b, round, position, winnerID)
	}

	for roundComplete(b, b.CurrentRound) && b.CurrentRound < b.TotalRounds {
		b.CurrentRound++
	}

	return nil
}

// MatchAt returns the match at the given round and position, or nil.
func MatchAt(b *models.TournamentBracket, round, position int) *models.BracketMatch {
	for i := range b.Matches {
		if b.Matches[i].Round == round && b.Matches[i].Position == position {
			return &b.Matches[i]
		}
	}
	return nil
}

// ByeCount counts the matches resolved as byes.
func ByeCount(b *models.TournamentBracket) int {
	count := 0
	for i := range b.Matches {
		if b.Matches[i].Status == models.MatchBye {
			count++
		}
	}
	return count
}

func matchesInRound(participants, round int) int {
	denom := 1 << uint(round)
	return (participants + denom - 1) / denom
}

func roundSize(b *models.TournamentBracket, round int) int {
	count := 0
	for i := range b.Matches {
		if b.Matches[i].Round == round {
			count++
		}
	}
	return count
}

// feederCount is how many matches of the previous round feed this slot
// pair. A single feeder means the second slot can never fill from play,
// so the match resolves as a structural bye once its occupant arrives.
func feederCount(b *models.TournamentBracket, round, position int) int {
	if round == 1 {
		return 2
	}
	prev := roundSize(b, round-1)
	count := 0
	if 2*position-1 <= prev {
		count++
	}
	if 2*position <= prev {
		count++
	}
	return count
}

func fillNextRound(b *models.TournamentBracket, round, position int, winnerID string) {
	nextPos := (position + 1) / 2
	next := MatchAt(b, round+1, nextPos)
	if next == nil {
		return
	}

	if position%2 == 1 {
		next.FactionA = strPtr(winnerID)
	} else {
		next.FactionB = strPtr(winnerID)
	}

	if next.FactionA != nil && next.FactionB != nil {
		next.Status = models.MatchReady
		return
	}

	if feederCount(b, round+1, nextPos) == 1 && next.Status == models.MatchPending {
		next.WinnerID = strPtr(winnerID)
		next.Status = models.MatchBye
		if round+1 < b.TotalRounds {
			fillNextRound(b, round+1, nextPos, winnerID)
		}
	}
}

func roundComplete(b *models.TournamentBracket, round int) bool {
	for i := range b.Matches {
		m := &b.Matches[i]
		if m.Round != round {
			continue
		}
		if m.Status != models.MatchComplete && m.Status != models.MatchBye {
			return false
		}
	}
	return true
}

func strPtr(s string) *string {
	return &s
}
