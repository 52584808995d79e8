package app

import (
	"fmt"
	"net/http"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/config"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/logger"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/repository/sqlite"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/route"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/services/classify"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/services/ingest"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/services/progress"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/services/thumbs"
)

// App wires configuration, storage, services and the HTTP surface together.
type App struct {
	config *config.Config
	logger *logger.Logger
	db     *sqlite.DB
	hub    *progress.HubService
	deps   *route.Dependencies
}

// New builds the application. parser may be nil when no document format
// plugin is available; the ingest endpoint then answers 503.
func New(parser ingest.DocumentParser) (*App, error) {
	cfg := config.Load()
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create data directories: %w", err)
	}

	log := logger.New(cfg.LogDirectory)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	images := sqlite.NewImageRepository(db)
	occurrences := sqlite.NewOccurrenceRepository(db)
	tags := sqlite.NewTagRepository(db)
	settings := sqlite.NewSettingsRepository(db)
	sources := sqlite.NewSourceRepository(db)

	if err := tags.EnsureCategories(catalog.DefaultCategories()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed tag categories: %w", err)
	}

	hub := progress.NewHubService(log)
	reconciler := ingest.NewReconciler(images, occurrences, cfg.StorageDirectory, log)
	ingestService := ingest.NewService(reconciler, sources, hub, cfg.IngestWorkers, log)

	classifier := classify.NewClient(cfg.ClassifierURL, cfg.ClassifierTimeout)
	engine := classify.NewEngine(classifier, images, tags,
		cfg.EnsembleSize, cfg.Temperature, cfg.ThresholdFloor, log)

	thumbnails := thumbs.NewCache(cfg.CacheDirectory, cfg.ThumbnailSize, log)

	deps := &route.Dependencies{
		Images:      images,
		Occurrences: occurrences,
		Tags:        tags,
		Settings:    settings,
		Sources:     sources,
		Ingest:      ingestService,
		Parser:      parser,
		Classifier:  classifier,
		Engine:      engine,
		Thumbnails:  thumbnails,
		Hub:         hub,
		Logger:      log,
	}

	return &App{
		config: cfg,
		logger: log,
		db:     db,
		hub:    hub,
		deps:   deps,
	}, nil
}

// Run starts background services and serves HTTP until the listener fails.
func (a *App) Run() error {
	go a.hub.Run()

	router := route.SetupRoutes(a.deps)

	a.logger.Info("Image catalog server listening on :%d", a.config.Port)
	a.logger.Info("Database: %s", a.config.DatabasePath)
	a.logger.Info("Image storage: %s", a.config.StorageDirectory)
	a.logger.Info("Classifier: %s", a.config.ClassifierURL)

	return http.ListenAndServe(fmt.Sprintf(":%d", a.config.Port), router)
}

// Close releases the database handle.
func (a *App) Close() error {
	return a.db.Close()
}
