package route

import (
	"net/http"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/handlers"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/logger"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/repository"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/services/classify"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/services/ingest"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/services/progress"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/services/thumbs"
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Images      repository.ImageRepository
	Occurrences repository.OccurrenceRepository
	Tags        repository.TagRepository
	Settings    repository.SettingsRepository
	Sources     repository.SourceRepository

	Ingest     *ingest.Service
	Parser     ingest.DocumentParser
	Classifier *classify.Client
	Engine     *classify.Engine
	Thumbnails *thumbs.Cache
	Hub        *progress.HubService

	Logger *logger.Logger
}

// SetupRoutes registers the API endpoints.
func SetupRoutes(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()
	log := deps.Logger

	// Image catalog
	mux.HandleFunc("/api/images", handlers.ListImagesHandler(deps.Images, log))
	mux.HandleFunc("/api/images/search", handlers.SearchByTagsHandler(deps.Images, log))
	mux.HandleFunc("/api/images/get", handlers.GetImageHandler(deps.Images, deps.Occurrences, deps.Tags, log))
	mux.HandleFunc("/api/images/delete", handlers.DeleteImageHandler(deps.Images, log))
	mux.HandleFunc("/api/images/purge", handlers.PurgeMissingHandler(deps.Images, log))
	mux.HandleFunc("/api/images/thumbnail", handlers.ThumbnailHandler(deps.Images, deps.Occurrences, deps.Thumbnails, log))
	mux.HandleFunc("/api/stats", handlers.StatsHandler(deps.Images, deps.Occurrences, log))

	// Taxonomy
	mux.HandleFunc("/api/tags/categories", handlers.ListCategoriesHandler(deps.Tags, log))
	mux.HandleFunc("/api/tags/tree", handlers.TagTreeHandler(deps.Tags, log))
	mux.HandleFunc("/api/tags/list", handlers.ListTagsHandler(deps.Tags, log))
	mux.HandleFunc("/api/tags", handlers.TagsHandler(deps.Tags, log))
	mux.HandleFunc("/api/images/tags", handlers.ImageTagsHandler(deps.Tags, log))

	// Classification
	mux.HandleFunc("/api/classify", handlers.ClassifyImageHandler(deps.Engine, log))
	mux.HandleFunc("/api/classify/batch", handlers.ClassifyBatchHandler(deps.Engine, log))
	mux.HandleFunc("/api/classify/preview", handlers.PredictHandler(deps.Images, deps.Classifier, log))
	mux.HandleFunc("/api/classify/health", handlers.ClassifierHealthHandler(deps.Classifier, log))

	// Ingestion
	mux.HandleFunc("/api/ingest", handlers.IngestFolderHandler(deps.Ingest, deps.Parser, log))
	mux.HandleFunc("/api/sources", handlers.SourcesHandler(deps.Sources, log))
	mux.HandleFunc("/api/settings", handlers.SettingsHandler(deps.Settings, log))

	// Progress stream
	mux.HandleFunc("/api/progress", handlers.ProgressWebsocketHandler(deps.Hub, log))

	return mux
}
