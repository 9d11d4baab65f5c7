package scheduler

import (
	"context"
	"time"

	"github.com/kaanbarutcu/warseason/config"
	"github.com/kaanbarutcu/warseason/internal/service"
	"github.com/kaanbarutcu/warseason/logger"
)

// Scheduler drives the periodic work of the war season: phase ticks,
// bracket generation attempts, and rating refresh passes. Every job is
// guarded by a distributed lock inside its service, so running multiple
// instances is safe.
type Scheduler struct {
	phaseService      service.PhaseService
	tournamentService service.TournamentService
	ratingService     service.RatingService
	logger            *logger.Logger

	phaseInterval      time.Duration
	tournamentInterval time.Duration
	ratingInterval     time.Duration

	stopChan chan struct{}
}

func NewScheduler(
	phaseService service.PhaseService,
	tournamentService service.TournamentService,
	ratingService service.RatingService,
	logger *logger.Logger,
	cfg *config.Config,
) *Scheduler {
	return &Scheduler{
		phaseService:       phaseService,
		tournamentService:  tournamentService,
		ratingService:      ratingService,
		logger:             logger.With("component", "scheduler"),
		phaseInterval:      time.Duration(cfg.Scheduler.PhaseIntervalMinutes) * time.Minute,
		tournamentInterval: time.Duration(cfg.Scheduler.TournamentIntervalMinutes) * time.Minute,
		ratingInterval:     time.Duration(cfg.Scheduler.RatingIntervalMinutes) * time.Minute,
		stopChan:           make(chan struct{}),
	}
}

// Start launches the periodic loops and runs an immediate phase tick so a
// freshly started instance catches up without waiting a full interval.
func (s *Scheduler) Start() {
	s.logger.Info("Starting schedulers",
		"phase_interval", s.phaseInterval,
		"tournament_interval", s.tournamentInterval,
		"rating_interval", s.ratingInterval,
	)

	s.runPhaseTick()

	go s.loop(s.phaseInterval, s.runPhaseTick)
	go s.loop(s.tournamentInterval, s.runBracketGeneration)
	go s.loop(s.ratingInterval, s.runRatingRefresh)
}

func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.logger.Info("Schedulers stopped")
}

// Private methods

func (s *Scheduler) loop(interval time.Duration, job func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			job()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) runPhaseTick() {
	ctx := context.Background()
	if appErr := s.phaseService.RunPhaseTick(ctx, time.Now().UTC()); appErr != nil {
		s.logger.Error("Phase tick failed", "error", appErr)
	}
}

func (s *Scheduler) runBracketGeneration() {
	ctx := context.Background()
	if appErr := s.tournamentService.RunBracketGeneration(ctx, time.Now().UTC()); appErr != nil {
		s.logger.Error("Bracket generation failed", "error", appErr)
	}
}

func (s *Scheduler) runRatingRefresh() {
	ctx := context.Background()
	if _, appErr := s.ratingService.RefreshStaleRatings(ctx); appErr != nil {
		s.logger.Error("Rating refresh failed", "error", appErr)
	}
}
