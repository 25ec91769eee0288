package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seedkeeper/internal/common"
	"github.com/ternarybob/seedkeeper/internal/handlers"
	"github.com/ternarybob/seedkeeper/internal/interfaces"
	"github.com/ternarybob/seedkeeper/internal/models"
	"github.com/ternarybob/seedkeeper/internal/services/eligibility"
	"github.com/ternarybob/seedkeeper/internal/services/events"
	"github.com/ternarybob/seedkeeper/internal/services/orchestrator"
	"github.com/ternarybob/seedkeeper/internal/services/scheduler"
	"github.com/ternarybob/seedkeeper/internal/services/status"
	"github.com/ternarybob/seedkeeper/internal/storage/badger"
	"github.com/ternarybob/seedkeeper/internal/tracker"
)

const (
	dailyJobName = "daily-actions"
	pollJobName  = "stats-poll"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService
	TrackerClient  interfaces.TrackerClient

	Orchestrator  *orchestrator.Service
	StatusService *status.Service
	Scheduler     interfaces.SchedulerService

	// Handlers
	APIHandler    *handlers.APIHandler
	StatusHandler *handlers.StatusHandler
	RunHandler    *handlers.RunHandler
}

// New wires the full application: storage, event bus, tracker client,
// orchestrator, status tracking, scheduled jobs, and HTTP handlers.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager

	a.EventService = events.NewService(logger)

	a.TrackerClient = tracker.NewClient(cfg,
		tracker.WithLogger(logger),
		tracker.WithRateLimit(cfg.Tracker.RateLimit),
	)

	evaluator := eligibility.New(cfg.Thresholds)
	a.Orchestrator = orchestrator.NewService(cfg, a.TrackerClient, evaluator, a.StorageManager, a.EventService, logger)

	statusService, err := status.NewService(a.EventService, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize status service: %w", err)
	}
	a.StatusService = statusService

	a.Scheduler = scheduler.NewService(logger, cfg.DayLocation())
	if err := a.registerJobs(); err != nil {
		storageManager.Close()
		return nil, err
	}

	a.APIHandler = handlers.NewAPIHandler()
	a.StatusHandler = handlers.NewStatusHandler(cfg, a.StatusService, a.Scheduler, a.StorageManager.RunLedgerStorage(), a.StorageManager.KeyValueStorage(), evaluator)
	a.RunHandler = handlers.NewRunHandler(a.Orchestrator)

	return a, nil
}

// Start launches the scheduler and, when configured, kicks off a startup
// run so a restart never misses the day's actions.
func (a *App) Start() error {
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if a.Config.Schedule.RunOnStart {
		a.Logger.Info().Msg("Triggering startup run")
		go a.Orchestrator.Run(context.Background(), models.TriggerStartup)
	}

	return nil
}

// Close shuts down services in reverse dependency order
func (a *App) Close() error {
	var firstErr error

	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (a *App) registerJobs() error {
	if err := a.Scheduler.RegisterJob(dailyJobName, a.Config.Schedule.Daily, func() error {
		a.Orchestrator.Run(context.Background(), models.TriggerSchedule)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to register daily job: %w", err)
	}

	if err := a.Scheduler.RegisterJob(pollJobName, a.Config.Schedule.Poll, func() error {
		a.Orchestrator.RefreshStats(context.Background())
		return nil
	}); err != nil {
		return fmt.Errorf("failed to register stats poll job: %w", err)
	}

	return nil
}
