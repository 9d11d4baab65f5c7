package subscriber

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	commonevents "github.com/kaanbarutcu/warseason/events"
	"github.com/kaanbarutcu/warseason/internal/service"
	"github.com/kaanbarutcu/warseason/logger"
	"github.com/kaanbarutcu/warseason/natsjetstream"
)

type EventSubscriber struct {
	natsClient *natsjetstream.Client
	subscriber *natsjetstream.Subscriber
	warService service.WarService
	logger     *logger.Logger
}

type CombatScoreUpdatedEvent struct {
	WarID  string `json:"warId"`
	Side   string `json:"side"`
	Points int64  `json:"points"`
}

func NewEventSubscriber(
	natsClient *natsjetstream.Client,
	warService service.WarService,
	logger *logger.Logger,
) *EventSubscriber {
	return &EventSubscriber{
		natsClient: natsClient,
		subscriber: natsjetstream.NewSubscriber(natsClient),
		warService: warService,
		logger:     logger.With("component", "event-subscriber"),
	}
}

func (s *EventSubscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting event subscriptions")

	if err := s.subscribeToCombatEvents(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to combat events: %w", err)
	}

	s.logger.Info("All event subscriptions started")
	return nil
}

func (s *EventSubscriber) subscribeToCombatEvents(ctx context.Context) error {
	cfg := natsjetstream.ConsumerConfig{
		StreamName:   commonevents.CombatEventsStream,
		ConsumerName: "war-scheduler-combat-consumer",
		Durable:      "war-scheduler-combat",
		AckPolicy:    "explicit",
	}

	s.logger.Info("Subscribing to combat events",
		"stream", cfg.StreamName,
		"consumer", cfg.ConsumerName,
	)

	return s.subscriber.Subscribe(ctx, cfg, s.handleCombatEvents)
}

func (s *EventSubscriber) handleCombatEvents(ctx context.Context, msg jetstream.Msg) error {
	subject := msg.Subject()

	s.logger.Debug("Received combat event", "subject", subject)

	switch subject {
	case commonevents.CombatScoreUpdated:
		return s.handleCombatScoreUpdated(ctx, msg)
	default:
		s.logger.Warn("Unknown combat event subject", "subject", subject)
		return nil
	}
}

func (s *EventSubscriber) handleCombatScoreUpdated(ctx context.Context, msg jetstream.Msg) error {
	var event CombatScoreUpdatedEvent
	if err := natsjetstream.UnmarshalJSON(msg, &event); err != nil {
		s.logger.Error("Failed to unmarshal combat score event", "error", err)
		return fmt.Errorf("unmarshal error: %w", err)
	}

	if event.WarID == "" {
		s.logger.Warn("Combat score event without a war id, dropping")
		return nil
	}

	if appErr := s.warService.ApplyCombatScore(ctx, event.WarID, event.Side, event.Points); appErr != nil {
		s.logger.Error("Failed to apply combat score",
			"error", appErr,
			"war_id", event.WarID,
		)
		return fmt.Errorf("apply combat score error: %w", appErr)
	}

	return nil
}
