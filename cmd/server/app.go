package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fennwick/glossa-api/internal/config"
	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/domain/retention"
	"github.com/fennwick/glossa-api/internal/langdetect"
	"github.com/fennwick/glossa-api/internal/lookup"
	"github.com/fennwick/glossa-api/internal/memory"
	"github.com/fennwick/glossa-api/internal/platform/gemini"
	"github.com/fennwick/glossa-api/internal/platform/memstore"
	"github.com/fennwick/glossa-api/internal/platform/postgres"
	"github.com/fennwick/glossa-api/internal/session"
	"github.com/fennwick/glossa-api/internal/store"
	"github.com/fennwick/glossa-api/internal/task"
)

// application holds the server's wired dependencies. It is assembled once at
// startup and torn down by cleanup in reverse dependency order.
type application struct {
	config *config.Config
	logger *slog.Logger

	db        *sql.DB // nil when running on the in-memory store
	fragments store.FragmentStore

	memoryService  memory.MemoryService
	lookupService  *lookup.Service
	sessions       *session.Manager
	taskRunner     *task.TaskRunner
	purgeScheduler *task.Scheduler
}

// newApplication wires all application components from configuration.
// A missing database URL selects the in-memory fragment store, which is
// meant for local development only; everything else is wired identically.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	if cfg.Database.URL != "" {
		db, err := setupAppDatabase(cfg, logger)
		if err != nil {
			return nil, err
		}
		app.db = db
		app.fragments = postgres.NewPostgresFragmentStore(db, logger)
	} else {
		logger.Warn("no database URL configured, using in-memory fragment store")
		app.fragments = memstore.NewFragmentStore()
	}

	retentionSvc := retention.NewServiceWithParams(retention.NewParams(retention.ParamsConfig{
		RememberedThreshold: cfg.Retention.RememberedThreshold,
		LowSuccessRate:      cfg.Retention.LowSuccessRate,
		HighSuccessRate:     cfg.Retention.HighSuccessRate,
	}))

	memoryService, err := memory.NewMemoryService(
		app.fragments,
		app.db,
		retentionSvc,
		memory.PurgeConfig{
			Horizon:        cfg.Task.PurgeHorizon,
			RetentionFloor: cfg.Task.PurgeRetentionFloor,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory service: %w", err)
	}
	app.memoryService = memoryService

	recognizer, err := gemini.NewRecognizer(ctx, logger, cfg.Gemini)
	if err != nil {
		return nil, fmt.Errorf("failed to create text recognizer: %w", err)
	}

	translator, err := gemini.NewTranslator(ctx, logger, cfg.Gemini)
	if err != nil {
		return nil, fmt.Errorf("failed to create translator: %w", err)
	}

	lookupService, err := lookup.NewService(
		recognizer,
		translator,
		memoryService,
		langdetect.NewWhatlangDetector(),
		lookup.Config{
			OCRTimeout:         cfg.Pipeline.OCRTimeout,
			TranslationTimeout: cfg.Pipeline.TranslationTimeout,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup service: %w", err)
	}
	app.lookupService = lookupService

	sessions, err := session.NewManager(
		domain.FixationConfig{
			StabilityRadiusPx: cfg.Pipeline.FixationRadiusPx,
			MinDuration:       cfg.Pipeline.FixationMinDuration,
			MinConfidence:     cfg.Pipeline.FixationMinConfidence,
		},
		cfg.Pipeline.DefaultTargetLang,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}
	app.sessions = sessions

	if err := app.setupMaintenance(); err != nil {
		return nil, err
	}

	logger.Info("application initialized",
		slog.Bool("sql_backed", app.db != nil),
		slog.Int("task_workers", cfg.Task.WorkerCount))
	return app, nil
}

// setupMaintenance starts the background task runner and schedules the
// periodic stale-fragment purge. The purge is idempotent, so there is no
// persisted task state to recover; the scheduler enqueues a fresh run at
// startup and on every interval after that.
func (app *application) setupMaintenance() error {
	app.taskRunner = task.NewTaskRunner(task.TaskRunnerConfig{
		WorkerCount:  app.config.Task.WorkerCount,
		QueueSize:    app.config.Task.QueueSize,
		StuckTaskAge: app.config.Task.StuckTaskAge,
	}, app.logger)

	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	// Only fails on nil dependencies; validate once so the factory below
	// can ignore the error.
	if _, err := task.NewPurgeStaleTask(app.memoryService, app.logger); err != nil {
		return fmt.Errorf("failed to create purge task: %w", err)
	}

	factory := func() task.Task {
		t, _ := task.NewPurgeStaleTask(app.memoryService, app.logger)
		return t
	}

	scheduler, err := task.NewScheduler(
		app.taskRunner, factory, app.config.Task.PurgeInterval, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create purge scheduler: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start purge scheduler: %w", err)
	}
	app.purgeScheduler = scheduler

	return nil
}

// cleanup releases application resources in reverse dependency order:
// stop scheduling new work, drain the runner, close sessions, then the
// database handle.
func (app *application) cleanup() {
	if app.purgeScheduler != nil {
		app.purgeScheduler.Stop()
	}

	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.sessions != nil {
		app.sessions.CloseAll()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection",
				slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application cleanup completed")
}
