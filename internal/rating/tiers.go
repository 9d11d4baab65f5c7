package rating

// Tier is a coarse strength bracket used to gate fair matchmaking.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

type tierThreshold struct {
	tier Tier
	min  int
	max  int
}

// Ordered lowest tier first; every non-negative total falls in exactly
// one bucket.
var tierThresholds = []tierThreshold{
	{TierBronze, 0, 999},
	{TierSilver, 1000, 2499},
	{TierGold, 2500, 4999},
	{TierPlatinum, 5000, 9999},
	{TierDiamond, 10000, 1<<31 - 1},
}

// TierFor maps a power-rating total to its threshold bucket. Totals below
// every bucket default to the lowest tier.
func TierFor(total int) Tier {
	for _, t := range tierThresholds {
		if total >= t.min && total <= t.max {
			return t.tier
		}
	}
	return tierThresholds[0].tier
}

// TierIndex returns the position of a tier in the ordered tier list,
// or -1 for an unknown tier.
func TierIndex(tier Tier) int {
	for i, t := range tierThresholds {
		if t.tier == tier {
			return i
		}
	}
	return -1
}

func Tiers() []Tier {
	tiers := make([]Tier, len(tierThresholds))
	for i, t := range tierThresholds {
		tiers[i] = t.tier
	}
	return tiers
}
