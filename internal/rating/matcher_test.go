package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var defaultRules = Rules{
	AllowAdjacentTiers: true,
	MaxPowerGapPercent: 0.35,
}

func TestCanMatchSameTier(t *testing.T) {
	d := CanMatch(TierGold, 3000, TierGold, 3500, defaultRules)

	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reasons)
	assert.Equal(t, 0, d.TierGap)
}

func TestCanMatchIsSymmetric(t *testing.T) {
	a := CanMatch(TierGold, 3000, TierSilver, 2400, defaultRules)
	b := CanMatch(TierSilver, 2400, TierGold, 3000, defaultRules)

	assert.Equal(t, a, b)
}

func TestCanMatchRejectsTierSkip(t *testing.T) {
	// Two tiers apart is always rejected, regardless of power values.
	d := CanMatch(TierBronze, 900, TierGold, 900, defaultRules)

	assert.False(t, d.Allowed)
	assert.Equal(t, 2, d.TierGap)
	assert.Len(t, d.Reasons, 1)
	assert.Contains(t, d.Reasons[0], "tier gap")
}

func TestCanMatchAdjacentTiersGated(t *testing.T) {
	strict := Rules{AllowAdjacentTiers: false, MaxPowerGapPercent: 0.35}

	allowed := CanMatch(TierSilver, 2400, TierGold, 2600, defaultRules)
	assert.True(t, allowed.Allowed)

	blocked := CanMatch(TierSilver, 2400, TierGold, 2600, strict)
	assert.False(t, blocked.Allowed)
	assert.Contains(t, blocked.Reasons[0], "adjacent-tier")
}

func TestCanMatchRejectsWidePowerGap(t *testing.T) {
	d := CanMatch(TierGold, 2600, TierGold, 4900, defaultRules)

	assert.False(t, d.Allowed)
	assert.InDelta(t, float64(4900-2600)/2600.0, d.PowerGapPercent, 1e-9)
	assert.Contains(t, d.Reasons[0], "power gap")
}

func TestCanMatchZeroRatingTreatedAsMaxGap(t *testing.T) {
	d := CanMatch(TierBronze, 0, TierBronze, 500, defaultRules)

	assert.False(t, d.Allowed)
	assert.Equal(t, 1.0, d.PowerGapPercent)
}

func TestCanMatchAccumulatesAllReasons(t *testing.T) {
	strict := Rules{AllowAdjacentTiers: false, MaxPowerGapPercent: 0.10}
	d := CanMatch(TierSilver, 1200, TierGold, 4800, strict)

	assert.False(t, d.Allowed)
	assert.Len(t, d.Reasons, 2)
}
