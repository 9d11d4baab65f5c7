package rating

import "math"

// Snapshot is the faction state a rating is computed from. It carries no
// storage references; callers fetch it from the snapshot provider.
type Snapshot struct {
	MemberCount    int
	FactionLevel   int
	AvgMemberLevel float64
	TerritoryCount int
	Treasury       int64
	UpgradeCount   int
	SeasonWins     int
	SeasonLosses   int
}

// Breakdown is the weighted component scores of a power rating and their
// floored sum, with the tier bucket the sum falls into.
type Breakdown struct {
	MemberScore         float64
	LevelScore          float64
	AvgMemberLevelScore float64
	TerritoryScore      float64
	WealthScore         float64
	UpgradeScore        float64
	WinRateBonus        float64
	Total               int
	Tier                Tier
}

const (
	weightMember   = 10.0
	weightLevel    = 50.0
	weightAvgLevel = 5.0

	weightTerritory = 100.0
	wealthDivisor   = 1000.0
	wealthCap       = 500.0
	weightUpgrade   = 25.0

	// Win-rate bonuses only apply once a faction has played enough games
	// this season to make the rate meaningful.
	minGamesForWinRateBonus = 3

	bonusExceptional = 300.0  // >= 75%
	bonusGood        = 150.0  // >= 60%
	bonusAverage     = 0.0    // >= 40%
	bonusPoor        = -100.0 // >= 25%
	bonusTerrible    = -200.0
)

// Compute turns a faction snapshot into a weighted power rating.
// Deterministic: identical snapshots always produce identical breakdowns.
func Compute(s Snapshot) Breakdown {
	b := Breakdown{
		MemberScore:         float64(s.MemberCount) * weightMember,
		LevelScore:          float64(s.FactionLevel) * weightLevel,
		AvgMemberLevelScore: s.AvgMemberLevel * weightAvgLevel,
		TerritoryScore:      float64(s.TerritoryCount) * weightTerritory,
		WealthScore:         math.Min(float64(s.Treasury)/wealthDivisor, wealthCap),
		UpgradeScore:        float64(s.UpgradeCount) * weightUpgrade,
		WinRateBonus:        winRateBonus(s.SeasonWins, s.SeasonLosses),
	}

	sum := b.MemberScore + b.LevelScore + b.AvgMemberLevelScore +
		b.TerritoryScore + b.WealthScore + b.UpgradeScore + b.WinRateBonus

	b.Total = int(math.Floor(sum))
	if b.Total < 0 {
		b.Total = 0
	}
	b.Tier = TierFor(b.Total)

	return b
}

func winRateBonus(wins, losses int) float64 {
	games := wins + losses
	if games < minGamesForWinRateBonus {
		return 0
	}

	rate := float64(wins) / float64(games)
	switch {
	case rate >= 0.75:
		return bonusExceptional
	case rate >= 0.60:
		return bonusGood
	case rate >= 0.40:
		return bonusAverage
	case rate >= 0.25:
		return bonusPoor
	default:
		return bonusTerrible
	}
}
