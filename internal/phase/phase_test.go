package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 2025-06-02 00:00 UTC
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestComputeBoundariesMonotonic(t *testing.T) {
	b := ComputeBoundaries(monday)

	assert.True(t, b.DeclarationStart.Before(b.DeclarationEnd))
	assert.True(t, b.DeclarationEnd.Before(b.ResolutionStart))
	assert.True(t, b.ResolutionStart.Before(b.ResolutionEnd))
}

func TestComputeBoundariesWindows(t *testing.T) {
	b := ComputeBoundaries(monday)

	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), b.DeclarationStart)
	assert.Equal(t, time.Date(2025, 6, 5, 23, 59, 59, 0, time.UTC), b.DeclarationEnd)
	assert.Equal(t, time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC), b.ResolutionStart)
	assert.Equal(t, time.Date(2025, 6, 8, 23, 59, 59, 0, time.UTC), b.ResolutionEnd)
}

func TestConsecutiveWeeksDoNotOverlap(t *testing.T) {
	this := ComputeBoundaries(monday)
	next := ComputeBoundaries(NextMonday(monday))

	assert.True(t, this.ResolutionEnd.Before(next.DeclarationStart))
}

func TestWeekMonday(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday itself", monday, monday},
		{"midweek", time.Date(2025, 6, 4, 12, 30, 0, 0, time.UTC), monday},
		{"sunday night", time.Date(2025, 6, 8, 23, 59, 59, 0, time.UTC), monday},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, WeekMonday(c.in))
		})
	}
}

func TestTarget(t *testing.T) {
	b := ComputeBoundaries(monday)

	cases := []struct {
		name      string
		now       time.Time
		hasActive bool
		want      Phase
	}{
		{"before week opens", monday.Add(-1 * time.Hour), false, Cooldown},
		{"declaration opens", b.DeclarationStart, false, Declaration},
		{"wednesday noon", time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC), false, Declaration},
		{"declaration closes", b.DeclarationEnd, false, Declaration},
		{"preparation", b.DeclarationEnd.Add(time.Second), false, Preparation},
		{"friday morning no active wars", time.Date(2025, 6, 6, 8, 0, 0, 0, time.UTC), false, Resolution},
		{"friday morning with active wars", time.Date(2025, 6, 6, 8, 0, 0, 0, time.UTC), true, Active},
		{"resolution closes", b.ResolutionEnd, false, Resolution},
		{"after week ends", b.ResolutionEnd.Add(time.Second), true, Cooldown},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Target(c.now, b, c.hasActive))
		})
	}
}

func TestTargetIsPure(t *testing.T) {
	b := ComputeBoundaries(monday)
	now := time.Date(2025, 6, 6, 8, 0, 0, 0, time.UTC)

	first := Target(now, b, true)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Target(now, b, true))
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, p := range []Phase{Cooldown, Declaration, Preparation, Active, Resolution} {
		got, err := Parse(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := Parse("NOT_A_PHASE")
	assert.Error(t, err)
}
