package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/logger"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/repository"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/services/ingest"
)

// IngestFolderHandler kicks off a synchronous ingestion run over one
// folder of documents. Progress streams out on the websocket; the response
// carries the final report. Without a configured document parser the
// endpoint answers 503.
func IngestFolderHandler(service *ingest.Service, parser ingest.DocumentParser,
	logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if parser == nil {
			http.Error(w, "no document parser configured", http.StatusServiceUnavailable)
			return
		}

		var request struct {
			Folder string `json:"folder"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Folder == "" {
			writeError(w, fmt.Errorf("missing folder: %w", catalog.ErrValidation))
			return
		}

		logger.Info("Starting ingestion of %s", request.Folder)
		report, err := service.IngestFolder(r.Context(), parser, request.Folder, nil)
		if err != nil {
			logger.Error("Ingestion of %s failed: %v", request.Folder, err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// SourcesHandler manages the operator's recorded scan roots.
func SourcesHandler(sources repository.SourceRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list, err := sources.List()
			if err != nil {
				logger.Error("Failed to list sources: %v", err)
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"sources": list})

		case http.MethodPost:
			var request struct {
				Path string `json:"path"`
			}
			if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Path == "" {
				writeError(w, fmt.Errorf("missing path: %w", catalog.ErrValidation))
				return
			}

			source, err := sources.Add(request.Path)
			if err != nil {
				logger.Error("Failed to add source %s: %v", request.Path, err)
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, source)

		case http.MethodDelete:
			path := r.URL.Query().Get("path")
			if path == "" {
				writeError(w, fmt.Errorf("missing path: %w", catalog.ErrValidation))
				return
			}

			if err := sources.Remove(path); err != nil {
				logger.Error("Failed to remove source %s: %v", path, err)
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"removed": path})

		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}
}

// SettingsHandler reads and writes flat key/value settings.
func SettingsHandler(settings repository.SettingsRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			key := r.URL.Query().Get("key")
			if key == "" {
				writeError(w, fmt.Errorf("missing key: %w", catalog.ErrValidation))
				return
			}

			value, err := settings.Get(key)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})

		case http.MethodPut, http.MethodPost:
			var request struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			}
			if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Key == "" {
				writeError(w, fmt.Errorf("missing key: %w", catalog.ErrValidation))
				return
			}

			if err := settings.Set(request.Key, request.Value); err != nil {
				logger.Error("Failed to store setting %s: %v", request.Key, err)
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"key": request.Key, "value": request.Value})

		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}
}
