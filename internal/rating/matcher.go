package rating

import "fmt"

// Rules are the configurable fairness constraints for matchmaking.
type Rules struct {
	AllowAdjacentTiers bool
	MaxPowerGapPercent float64
}

// Decision is the outcome of a matchmaking fairness check. Reasons lists
// every violated rule, not just the first.
type Decision struct {
	Allowed         bool
	Reasons         []string
	TierGap         int
	PowerGapPercent float64
}

// CanMatch decides whether two power ratings may be matched. The check is
// symmetric: CanMatch(a, b) == CanMatch(b, a).
func CanMatch(tierA Tier, totalA int, tierB Tier, totalB int, rules Rules) Decision {
	d := Decision{
		TierGap:         tierGap(tierA, tierB),
		PowerGapPercent: powerGapPercent(totalA, totalB),
	}

	if d.TierGap > 1 {
		d.Reasons = append(d.Reasons, fmt.Sprintf(
			"tier gap of %d exceeds the adjacency limit (%s vs %s)", d.TierGap, tierA, tierB))
	} else if d.TierGap == 1 && !rules.AllowAdjacentTiers {
		d.Reasons = append(d.Reasons, "adjacent-tier matching is disabled")
	}

	if d.PowerGapPercent > rules.MaxPowerGapPercent {
		d.Reasons = append(d.Reasons, fmt.Sprintf(
			"power gap of %.0f%% exceeds the %.0f%% limit",
			d.PowerGapPercent*100, rules.MaxPowerGapPercent*100))
	}

	d.Allowed = len(d.Reasons) == 0
	return d
}

func tierGap(a, b Tier) int {
	gap := TierIndex(a) - TierIndex(b)
	if gap < 0 {
		return -gap
	}
	return gap
}

func powerGapPercent(a, b int) float64 {
	min, max := a, b
	if min > max {
		min, max = max, min
	}
	if min <= 0 {
		return 1.0
	}
	return float64(max-min) / float64(min)
}
