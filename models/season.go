package models

import (
	"fmt"
	"time"
)

type Season struct {
	SeasonNumber int          `dynamodbav:"season_number"`
	Status       SeasonStatus `dynamodbav:"status"`
	StartsAt     time.Time    `dynamodbav:"starts_at"`
	LengthWeeks  int          `dynamodbav:"length_weeks"`
	CurrentWeek  int          `dynamodbav:"current_week"`
	ConcludedAt  time.Time    `dynamodbav:"concluded_at"`
	CreatedAt    time.Time    `dynamodbav:"created_at"`
	UpdatedAt    time.Time    `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`

	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
}

type SeasonStatus int

const (
	SeasonActive SeasonStatus = iota
	SeasonConcluded
)

var seasonStatusNames = map[SeasonStatus]string{
	SeasonActive:    "Active",
	SeasonConcluded: "Concluded",
}

func (s SeasonStatus) String() string {
	return seasonStatusNames[s]
}

// Standing is one faction's cumulative season record, stored as its own
// item so per-war updates stay single-item atomic.
type Standing struct {
	SeasonNumber int    `dynamodbav:"season_number"`
	FactionID    string `dynamodbav:"faction_id"`
	Wins         int    `dynamodbav:"wins"`
	Losses       int    `dynamodbav:"losses"`
	Draws        int    `dynamodbav:"draws"`
	Score        int    `dynamodbav:"score"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// Key handlers

func SeasonPK(seasonNumber int) string {
	return fmt.Sprintf("SEASON#%d", seasonNumber)
}

func MetaSK() string {
	return "META"
}

func SeasonActiveGSI1PK() string {
	return "SEASON#ACTIVE"
}

func StartTimeGSI1SK(startTime string) string {
	return fmt.Sprintf("START#%s", startTime)
}

func StandingSK(factionID string) string {
	return fmt.Sprintf("STANDING#%s", factionID)
}

func StandingSKPrefix() string {
	return "STANDING#"
}
