package events

const (
	// Streams
	WarEventsStream    = "WAR_EVENTS"
	CombatEventsStream = "COMBAT_EVENTS"

	// Events
	WarPhaseChanged     = "events.war.phaseChanged"
	WarResolved         = "events.war.resolved"
	BracketGenerated    = "events.war.bracketGenerated"
	BracketMatchReady   = "events.war.matchReady"
	CombatScoreUpdated  = "events.combat.scoreUpdated"

	// Event Wildcards
	WarEventsWildcard    = "events.war.*"
	CombatEventsWildcard = "events.combat.*"
)
