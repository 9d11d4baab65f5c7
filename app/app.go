package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/kaanbarutcu/warseason/cache"
	"github.com/kaanbarutcu/warseason/config"
	"github.com/kaanbarutcu/warseason/database"
	apperrors "github.com/kaanbarutcu/warseason/errors"
	commonevents "github.com/kaanbarutcu/warseason/events"
	publisher "github.com/kaanbarutcu/warseason/internal/events/publisher"
	subscriber "github.com/kaanbarutcu/warseason/internal/events/subscriber"
	"github.com/kaanbarutcu/warseason/internal/repository"
	"github.com/kaanbarutcu/warseason/internal/scheduler"
	"github.com/kaanbarutcu/warseason/internal/service"
	"github.com/kaanbarutcu/warseason/logger"
	"github.com/kaanbarutcu/warseason/natsjetstream"
)

type App struct {
	cfg         *config.Config
	db          *database.DynamoDBClient
	redisClient *cache.RedisClient
	natsClient  *natsjetstream.Client
	logger      *logger.Logger

	ratingService     service.RatingService
	warService        service.WarService
	phaseService      service.PhaseService
	tournamentService service.TournamentService
	queryService      service.QueryService

	scheduler       *scheduler.Scheduler
	eventPublisher  *publisher.EventPublisher
	eventSubscriber *subscriber.EventSubscriber

	cleanup []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, *apperrors.AppError) {
	app := &App{
		cfg:     cfg,
		cleanup: make([]func() error, 0),
	}

	if err := app.initLogger(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init logger")
	}

	if err := app.initDatabase(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init database")
	}

	if err := app.initRedis(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init redis client")
	}

	if err := app.initNATS(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init nats client")
	}

	if err := app.initMessagePublisher(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init messaging publisher")
	}

	if err := app.initServices(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init services")
	}

	if err := app.initMessageSubscriber(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init messaging subscriber")
	}

	if err := app.initScheduler(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init scheduler")
	}

	return app, nil
}

func (a *App) initLogger() *apperrors.AppError {
	if a.cfg.Server.Environment == "production" {
		a.logger = logger.New(logger.Config{
			Level:       a.cfg.Server.LogLevel,
			Format:      "json",
			ServiceName: "war-scheduler",
		})
		return nil
	}

	a.logger = logger.Development("war-scheduler")
	return nil
}

func (a *App) initDatabase() *apperrors.AppError {
	dynamoClient, err := database.NewDynamoDBClient(a.cfg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create DynamoDB client")
	}

	a.db = dynamoClient
	return nil
}

func (a *App) initRedis() *apperrors.AppError {
	redisClient, err := cache.NewRedisClient(a.cfg.Redis)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to create Redis client")
	}

	a.redisClient = redisClient
	a.cleanup = append(a.cleanup, redisClient.Close)

	return nil
}

func (a *App) initNATS(ctx context.Context) *apperrors.AppError {
	natsClient, appErr := natsjetstream.NewClient(&natsjetstream.Config{
		URL:           a.cfg.NATS.URL,
		MaxReconnect:  a.cfg.NATS.MaxReconnect,
		ReconnectWait: time.Duration(a.cfg.NATS.ReconnectWaitSeconds) * time.Second,
		Timeout:       time.Duration(a.cfg.NATS.TimeoutSeconds) * time.Second,
	})
	if appErr != nil {
		return appErr
	}

	a.natsClient = natsClient
	a.cleanup = append(a.cleanup, natsClient.Close)

	streams := []jetstream.StreamConfig{
		{
			Name:     commonevents.WarEventsStream,
			Subjects: []string{commonevents.WarEventsWildcard},
		},
		{
			Name:     commonevents.CombatEventsStream,
			Subjects: []string{commonevents.CombatEventsWildcard},
		},
	}

	for _, stream := range streams {
		if _, err := a.natsClient.JetStream().CreateOrUpdateStream(ctx, stream); err != nil {
			a.logger.Error("Failed to create stream",
				"error", err,
				"stream", stream.Name,
			)
			return apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to create jetstream event stream")
		}
		a.logger.Info("Stream ready", "stream", stream.Name)
	}

	return nil
}

func (a *App) initMessagePublisher() *apperrors.AppError {
	a.eventPublisher = publisher.NewEventPublisher(a.natsClient, a.logger)
	return nil
}

func (a *App) initServices() *apperrors.AppError {
	seasonRepo := repository.NewSeasonRepository(a.db)
	scheduleRepo := repository.NewScheduleRepository(a.db)
	warRepo := repository.NewWarRepository(a.db)
	ratingRepo := repository.NewRatingRepository(a.db)
	snapshotRepo := repository.NewFactionSnapshotRepository(a.db)
	transactionRepo := database.NewTransactionRepository(a.db)

	locker := cache.NewLocker(a.redisClient)
	cooldowns := cache.NewCooldownStore(a.redisClient)
	leaderboard := cache.NewLeaderboardRepo(a.redisClient)

	a.ratingService = service.NewRatingService(
		ratingRepo,
		snapshotRepo,
		leaderboard,
		locker,
		a.logger,
		a.cfg,
	)

	a.warService = service.NewWarService(
		seasonRepo,
		scheduleRepo,
		warRepo,
		transactionRepo,
		a.ratingService,
		cooldowns,
		a.logger,
		a.cfg,
	)

	a.phaseService = service.NewPhaseService(
		seasonRepo,
		scheduleRepo,
		warRepo,
		a.ratingService,
		cooldowns,
		locker,
		a.eventPublisher,
		a.logger,
		a.cfg,
	)

	a.tournamentService = service.NewTournamentService(
		seasonRepo,
		scheduleRepo,
		warRepo,
		a.ratingService,
		locker,
		a.eventPublisher,
		a.logger,
		a.cfg,
	)

	a.queryService = service.NewQueryService(
		seasonRepo,
		scheduleRepo,
		warRepo,
		a.warService,
		leaderboard,
		a.logger,
	)

	return nil
}

func (a *App) initMessageSubscriber(ctx context.Context) *apperrors.AppError {
	a.eventSubscriber = subscriber.NewEventSubscriber(a.natsClient, a.warService, a.logger)
	if err := a.eventSubscriber.Start(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to start event subscriber")
	}
	return nil
}

func (a *App) initScheduler() *apperrors.AppError {
	a.scheduler = scheduler.NewScheduler(
		a.phaseService,
		a.tournamentService,
		a.ratingService,
		a.logger,
		a.cfg,
	)

	return nil
}

func (a *App) QueryService() service.QueryService {
	return a.queryService
}

func (a *App) WarService() service.WarService {
	return a.warService
}

func (a *App) TournamentService() service.TournamentService {
	return a.tournamentService
}

func (a *App) Start() *apperrors.AppError {
	go a.scheduler.Start()
	a.logger.Info("War season schedulers are started")

	a.logger.Info("Application started successfully")
	return nil
}

func (a *App) Stop() *apperrors.AppError {
	a.logger.Info("Stopping application...")

	a.scheduler.Stop()

	for _, cleanup := range a.cleanup {
		if err := cleanup(); err != nil {
			a.logger.Error(fmt.Sprintf("Cleanup error: %v", err))
		}
	}

	a.logger.Info("Application stopped")
	return nil
}
