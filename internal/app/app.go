package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placetunes/internal/common"
	"github.com/ternarybob/placetunes/internal/handlers"
	"github.com/ternarybob/placetunes/internal/interfaces"
	"github.com/ternarybob/placetunes/internal/services/analysis"
	"github.com/ternarybob/placetunes/internal/services/musicprovider"
	"github.com/ternarybob/placetunes/internal/services/taskmanager"
	"github.com/ternarybob/placetunes/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB              *badger.BadgerDB
	TaskStorage     interfaces.TaskStorage
	CallbackStorage interfaces.CallbackStorage

	// Services
	AnalysisService  interfaces.AnalysisService
	MusicProvider    interfaces.MusicProvider
	TaskManager      *taskmanager.Manager
	CleanupScheduler *taskmanager.CleanupScheduler

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	UploadHandler *handlers.UploadHandler
	TaskHandler   *handlers.TaskHandler
	WSHandler     *handlers.WebSocketHandler
	LogStreamer   *handlers.LogStreamer
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// WebSocket handler first so the log streamer can feed it
	app.WSHandler = handlers.NewWebSocketHandler(logger)

	app.LogStreamer = handlers.NewLogStreamer(app.WSHandler, &cfg.WebSocket)
	app.LogStreamer.Start()
	logger.SetChannel("websocket", app.LogStreamer.Channel())

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if cfg.Cleanup.Enabled {
		app.CleanupScheduler = taskmanager.NewCleanupScheduler(app.TaskManager, logger)
		if err := app.CleanupScheduler.Start(cfg.Cleanup.Schedule); err != nil {
			return nil, fmt.Errorf("failed to start cleanup scheduler: %w", err)
		}
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Bool("cleanup_enabled", cfg.Cleanup.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initStorage() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to open badger store: %w", err)
	}
	a.DB = db

	a.TaskStorage = badger.NewTaskStorage(db, a.Logger)
	a.CallbackStorage = badger.NewCallbackStorage(db, a.Logger)

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

func (a *App) initServices() error {
	// Image analysis: Gemini when a key is configured, otherwise the
	// location-derived fallback so generation still works
	if a.Config.Gemini.APIKey != "" {
		svc, err := analysis.NewService(&a.Config.Gemini, a.Logger)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to initialize Gemini analysis - using fallback analysis")
			a.AnalysisService = analysis.NewFallbackService(a.Logger)
		} else {
			a.AnalysisService = svc
			a.Logger.Debug().Msg("Gemini analysis service initialized")
		}
	} else {
		a.Logger.Warn().Msg("No Gemini API key configured - using fallback analysis")
		a.AnalysisService = analysis.NewFallbackService(a.Logger)
	}

	if a.Config.Provider.APIKey == "" {
		a.Logger.Warn().Msg("No music provider API key configured - generation requests will fail")
	}
	a.MusicProvider = musicprovider.NewClient(&a.Config.Provider, a.Logger)

	a.TaskManager = taskmanager.NewManager(
		a.TaskStorage,
		a.CallbackStorage,
		a.AnalysisService,
		a.MusicProvider,
		a.Config.Storage.Filesystem.Uploads,
		a.Logger,
	)
	a.TaskManager.AddObserver(a.WSHandler)

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.UploadHandler = handlers.NewUploadHandler(a.Config, a.Logger)
	a.TaskHandler = handlers.NewTaskHandler(a.TaskManager, a.Logger)
}

// Close shuts down components in reverse dependency order
func (a *App) Close(ctx context.Context) error {
	if a.CleanupScheduler != nil {
		a.CleanupScheduler.Stop()
	}

	if a.TaskManager != nil {
		if err := a.TaskManager.Stop(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Task manager did not stop cleanly")
		}
	}

	if gemini, ok := a.AnalysisService.(*analysis.Service); ok {
		gemini.Close()
	}

	if a.LogStreamer != nil {
		a.LogStreamer.Stop()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close badger store: %w", err)
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
