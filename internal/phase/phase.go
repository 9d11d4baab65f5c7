package phase

import (
	"fmt"
	"time"
)

// Phase is one stage of the weekly war cycle. The cycle is
// COOLDOWN -> DECLARATION -> PREPARATION -> ACTIVE -> RESOLUTION -> COOLDOWN
// and repeats every week until the season concludes.
type Phase int

const (
	Cooldown Phase = iota
	Declaration
	Preparation
	Active
	Resolution
)

var phaseNames = map[Phase]string{
	Cooldown:    "COOLDOWN",
	Declaration: "DECLARATION",
	Preparation: "PREPARATION",
	Active:      "ACTIVE",
	Resolution:  "RESOLUTION",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE(%d)", int(p))
}

func Parse(name string) (Phase, error) {
	for p, n := range phaseNames {
		if n == name {
			return p, nil
		}
	}
	return Cooldown, fmt.Errorf("unknown phase: %s", name)
}

// Boundaries are the four wall-clock edges of one scheduled week,
// derived once from the week's Monday 00:00 UTC.
type Boundaries struct {
	DeclarationStart time.Time
	DeclarationEnd   time.Time
	ResolutionStart  time.Time
	ResolutionEnd    time.Time
}

const (
	declarationEndOffset = 3*24*time.Hour + 23*time.Hour + 59*time.Minute + 59*time.Second // Thu 23:59:59
	resolutionStartDay   = 4 * 24 * time.Hour                                              // Fri 00:00
	resolutionEndOffset  = 6*24*time.Hour + 23*time.Hour + 59*time.Minute + 59*time.Second // Sun 23:59:59
)

// ComputeBoundaries derives the week's windows from its Monday 00:00 UTC.
func ComputeBoundaries(monday time.Time) Boundaries {
	start := time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
	return Boundaries{
		DeclarationStart: start,
		DeclarationEnd:   start.Add(declarationEndOffset),
		ResolutionStart:  start.Add(resolutionStartDay),
		ResolutionEnd:    start.Add(resolutionEndOffset),
	}
}

// WeekMonday returns Monday 00:00 UTC of the week containing t.
func WeekMonday(t time.Time) time.Time {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// NextMonday returns Monday 00:00 UTC of the week after the one containing t.
func NextMonday(t time.Time) time.Time {
	return WeekMonday(t).AddDate(0, 0, 7)
}

// Target computes the phase a schedule should be in at the given instant.
// It is a pure function of now, the boundaries, and whether any wars are
// still active; repeated invocations with unchanged inputs always agree.
func Target(now time.Time, b Boundaries, hasActiveWars bool) Phase {
	switch {
	case now.Before(b.DeclarationStart):
		return Cooldown
	case !now.After(b.DeclarationEnd):
		return Declaration
	case now.Before(b.ResolutionStart):
		return Preparation
	case !now.After(b.ResolutionEnd):
		if hasActiveWars {
			return Active
		}
		return Resolution
	default:
		return Cooldown
	}
}
