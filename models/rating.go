package models

import (
	"fmt"
	"time"
)

// PowerRating is the cached composite strength score of one faction.
// One current rating per faction; staleness is tracked via ComputedAt.
type PowerRating struct {
	FactionID string `dynamodbav:"faction_id"`

	MemberScore         float64 `dynamodbav:"member_score"`
	LevelScore          float64 `dynamodbav:"level_score"`
	AvgMemberLevelScore float64 `dynamodbav:"avg_member_level_score"`
	TerritoryScore      float64 `dynamodbav:"territory_score"`
	WealthScore         float64 `dynamodbav:"wealth_score"`
	UpgradeScore        float64 `dynamodbav:"upgrade_score"`
	WinRateBonus        float64 `dynamodbav:"win_rate_bonus"`

	Total int    `dynamodbav:"total"`
	Tier  string `dynamodbav:"tier"`

	SeasonWins   int `dynamodbav:"season_wins"`
	SeasonLosses int `dynamodbav:"season_losses"`

	ComputedAt time.Time `dynamodbav:"computed_at"`
	CreatedAt  time.Time `dynamodbav:"created_at"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`

	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
}

// Key handlers

func FactionPK(factionID string) string {
	return fmt.Sprintf("FACTION#%s", factionID)
}

func RatingSK() string {
	return "RATING"
}

func RatingAllGSI1PK() string {
	return "RATING#ALL"
}

func ComputedGSI1SK(computedAt string) string {
	return fmt.Sprintf("COMPUTED#%s", computedAt)
}

func ExtractFactionID(pk string) (string, error) {
	if len(pk) < 9 || pk[:8] != "FACTION#" {
		return "", fmt.Errorf("invalid faction PK format: %s", pk)
	}
	return pk[8:], nil
}
