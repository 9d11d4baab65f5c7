package models

import (
	"fmt"
	"time"
)

// WeekSchedule is the persisted record of one war week: its phase, its
// wall-clock windows, the war references owned by each lifecycle set, and
// the embedded tournament configuration. Schedules are append-only
// historical records and are never deleted.
type WeekSchedule struct {
	SeasonNumber int    `dynamodbav:"season_number"`
	WeekNumber   int    `dynamodbav:"week_number"`
	Phase        string `dynamodbav:"phase"`

	DeclarationStart time.Time `dynamodbav:"declaration_start"`
	DeclarationEnd   time.Time `dynamodbav:"declaration_end"`
	ResolutionStart  time.Time `dynamodbav:"resolution_start"`
	ResolutionEnd    time.Time `dynamodbav:"resolution_end"`

	// A war id lives in exactly one of these sets at a time.
	DeclaredWarIDs []string `dynamodbav:"declared_war_ids"`
	ActiveWarIDs   []string `dynamodbav:"active_war_ids"`
	ResolvedWarIDs []string `dynamodbav:"resolved_war_ids"`

	Tournament TournamentConfig `dynamodbav:"tournament"`

	CreatedAt time.Time `dynamodbav:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// Key handlers

func WeekSK(weekNumber int) string {
	return fmt.Sprintf("WEEK#%04d", weekNumber)
}
