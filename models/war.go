package models

import (
	"fmt"
	"time"
)

type War struct {
	WarID        string `dynamodbav:"war_id"`
	SeasonNumber int    `dynamodbav:"season_number"`
	WeekNumber   int    `dynamodbav:"week_number"`
	AttackerID   string `dynamodbav:"attacker_id"`
	DefenderID   string `dynamodbav:"defender_id"`
	Status       string `dynamodbav:"status"`

	// Combat scores are opaque numbers accumulated from the external
	// combat engine; resolution only compares their magnitudes.
	AttackerScore int64 `dynamodbav:"attacker_score"`
	DefenderScore int64 `dynamodbav:"defender_score"`

	Outcome    string    `dynamodbav:"outcome"`
	DeclaredAt time.Time `dynamodbav:"declared_at"`
	StartedAt  time.Time `dynamodbav:"started_at"`
	ResolvedAt time.Time `dynamodbav:"resolved_at"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`

	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
}

const (
	WarDeclared  = "declared"
	WarScheduled = "scheduled"
	WarActive    = "active"
	WarResolved  = "resolved"
)

const (
	OutcomeAttackerVictory = "attacker_victory"
	OutcomeDefenderVictory = "defender_victory"
	OutcomeDraw            = "draw"
)

// Involves reports whether the faction is a party to this war.
func (w *War) Involves(factionID string) bool {
	return w.AttackerID == factionID || w.DefenderID == factionID
}

// Key handlers

func WarPK(warID string) string {
	return fmt.Sprintf("WAR#%s", warID)
}

func WeekGSI1PK(seasonNumber, weekNumber int) string {
	return fmt.Sprintf("WEEK#%d#%d", seasonNumber, weekNumber)
}

func WarStatusGSI1SK(status, warID string) string {
	return fmt.Sprintf("STATUS#%s#WAR#%s", status, warID)
}

func WarStatusGSI1SKPrefix(status string) string {
	return fmt.Sprintf("STATUS#%s#", status)
}
