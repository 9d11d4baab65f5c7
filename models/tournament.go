package models

import "time"

type TournamentConfig struct {
	Enabled            bool                `dynamodbav:"enabled"`
	BracketGenerated   bool                `dynamodbav:"bracket_generated"`
	MatchingPreference string              `dynamodbav:"matching_preference"`
	Participants       []TournamentEntry   `dynamodbav:"participants"`
	Brackets           []TournamentBracket `dynamodbav:"brackets"`
}

// TournamentEntry is one faction's opt-in registration for the week's
// tournament, with the power rating snapshot taken at registration time.
type TournamentEntry struct {
	FactionID    string    `dynamodbav:"faction_id"`
	Tier         string    `dynamodbav:"tier"`
	PowerRating  int       `dynamodbav:"power_rating"`
	OptedIn      bool      `dynamodbav:"opted_in"`
	RegisteredAt time.Time `dynamodbav:"registered_at"`
}

type TournamentBracket struct {
	Tier         string         `dynamodbav:"tier"`
	TotalRounds  int            `dynamodbav:"total_rounds"`
	CurrentRound int            `dynamodbav:"current_round"`
	Matches      []BracketMatch `dynamodbav:"matches"`
}

type BracketMatch struct {
	Round    int     `dynamodbav:"round"`
	Position int     `dynamodbav:"position"`
	FactionA *string `dynamodbav:"faction_a"`
	FactionB *string `dynamodbav:"faction_b"`
	WinnerID *string `dynamodbav:"winner_id"`
	// WarID links the match to the war record created once both slots fill.
	WarID  *string     `dynamodbav:"war_id"`
	Status MatchStatus `dynamodbav:"status"`
}

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchReady      MatchStatus = "ready"
	MatchInProgress MatchStatus = "in_progress"
	MatchComplete   MatchStatus = "complete"
	MatchBye        MatchStatus = "bye"
)

const (
	MatchingPowerRating = "power_rating"
	MatchingRandom      = "random"
	MatchingSwiss       = "swiss"
)
