package publisher

import (
	"context"
	"fmt"
	"time"

	commonevents "github.com/kaanbarutcu/warseason/events"
	"github.com/kaanbarutcu/warseason/logger"
	"github.com/kaanbarutcu/warseason/natsjetstream"
)

type EventPublisher struct {
	publisher *natsjetstream.Publisher
	logger    *logger.Logger
}

type PhaseChangedEvent struct {
	PreviousPhase string `json:"previousPhase"`
	NewPhase      string `json:"newPhase"`
	WeekNumber    int    `json:"weekNumber"`
	SeasonNumber  int    `json:"seasonNumber"`
	TimeStamp     int64  `json:"timeStamp"`
}

type WarResolvedEvent struct {
	WarID        string `json:"warId"`
	SeasonNumber int    `json:"seasonNumber"`
	WeekNumber   int    `json:"weekNumber"`
	Outcome      string `json:"outcome"`
	AttackerID   string `json:"attackerId"`
	DefenderID   string `json:"defenderId"`
	TimeStamp    int64  `json:"timeStamp"`
}

type BracketGeneratedEvent struct {
	Tier       string `json:"tier"`
	MatchCount int    `json:"matchCount"`
	ByeCount   int    `json:"byeCount"`
	TimeStamp  int64  `json:"timeStamp"`
}

type MatchReadyEvent struct {
	Tier      string `json:"tier"`
	Round     int    `json:"round"`
	Position  int    `json:"position"`
	FactionA  string `json:"factionA"`
	FactionB  string `json:"factionB"`
	TimeStamp int64  `json:"timeStamp"`
}

func NewEventPublisher(client *natsjetstream.Client, logger *logger.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: natsjetstream.NewPublisher(client),
		logger:    logger,
	}
}

func (p *EventPublisher) PublishPhaseChanged(
	ctx context.Context,
	previousPhase, newPhase string,
	seasonNumber, weekNumber int,
) error {
	event := &PhaseChangedEvent{
		PreviousPhase: previousPhase,
		NewPhase:      newPhase,
		WeekNumber:    weekNumber,
		SeasonNumber:  seasonNumber,
		TimeStamp:     time.Now().Unix(),
	}

	if err := p.publisher.PublishJSON(ctx, commonevents.WarPhaseChanged, event); err != nil {
		p.logger.Error(fmt.Sprintf("Failed to publish phase changed event: %v", err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("Published phase changed event",
		"from", previousPhase,
		"to", newPhase,
		"season", seasonNumber,
		"week", weekNumber,
	)
	return nil
}

func (p *EventPublisher) PublishWarResolved(
	ctx context.Context,
	warID string,
	seasonNumber, weekNumber int,
	outcome, attackerID, defenderID string,
) error {
	event := &WarResolvedEvent{
		WarID:        warID,
		SeasonNumber: seasonNumber,
		WeekNumber:   weekNumber,
		Outcome:      outcome,
		AttackerID:   attackerID,
		DefenderID:   defenderID,
		TimeStamp:    time.Now().Unix(),
	}

	if err := p.publisher.PublishJSON(ctx, commonevents.WarResolved, event); err != nil {
		p.logger.Error(fmt.Sprintf("Failed to publish war resolved event: %v", err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("Published war resolved event", "war_id", warID, "outcome", outcome)
	return nil
}

func (p *EventPublisher) PublishBracketGenerated(
	ctx context.Context,
	tier string,
	matchCount, byeCount int,
) error {
	event := &BracketGeneratedEvent{
		Tier:       tier,
		MatchCount: matchCount,
		ByeCount:   byeCount,
		TimeStamp:  time.Now().Unix(),
	}

	if err := p.publisher.PublishJSON(ctx, commonevents.BracketGenerated, event); err != nil {
		p.logger.Error(fmt.Sprintf("Failed to publish bracket generated event: %v", err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("Published bracket generated event",
		"tier", tier,
		"matches", matchCount,
		"byes", byeCount,
	)
	return nil
}

func (p *EventPublisher) PublishMatchReady(
	ctx context.Context,
	tier string,
	round, position int,
	factionA, factionB string,
) error {
	event := &MatchReadyEvent{
		Tier:      tier,
		Round:     round,
		Position:  position,
		FactionA:  factionA,
		FactionB:  factionB,
		TimeStamp: time.Now().Unix(),
	}

	if err := p.publisher.PublishJSON(ctx, commonevents.BracketMatchReady, event); err != nil {
		p.logger.Error(fmt.Sprintf("Failed to publish match ready event: %v", err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("Published match ready event", "tier", tier, "round", round, "position", position)
	return nil
}
