package models

import "time"

// FactionSnapshot is the faction state the rating calculator consumes.
// Faction records themselves are owned by an external system; this core
// only reads the profile item.
type FactionSnapshot struct {
	FactionID      string    `dynamodbav:"faction_id"`
	Name           string    `dynamodbav:"name"`
	MemberCount    int       `dynamodbav:"member_count"`
	FactionLevel   int       `dynamodbav:"faction_level"`
	AvgMemberLevel float64   `dynamodbav:"avg_member_level"`
	TerritoryCount int       `dynamodbav:"territory_count"`
	Treasury       int64     `dynamodbav:"treasury"`
	UpgradeCount   int       `dynamodbav:"upgrade_count"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

func ProfileSK() string {
	return "PROFILE"
}
