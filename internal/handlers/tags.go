package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/logger"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/repository"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/services/classify"
)

// ListCategoriesHandler returns the tag taxonomy's categories.
func ListCategoriesHandler(tags repository.TagRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := tags.ListCategories()
		if err != nil {
			logger.Error("Failed to list categories: %v", err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
	}
}

// TagTreeHandler returns the tag hierarchy, optionally scoped to one
// category via the category query parameter.
func TagTreeHandler(tags repository.TagRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, _ := strconv.ParseInt(r.URL.Query().Get("category"), 10, 64)

		tree, err := tags.Tree(categoryID)
		if err != nil {
			logger.Error("Failed to build tag tree: %v", err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"tree": tree})
	}
}

// ListTagsHandler returns a flat tag listing, optionally filtered by
// category.
func ListTagsHandler(tags repository.TagRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, _ := strconv.ParseInt(r.URL.Query().Get("category"), 10, 64)

		list, err := tags.ListTags(categoryID)
		if err != nil {
			logger.Error("Failed to list tags: %v", err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"tags": list})
	}
}

// TagsHandler dispatches tag CRUD by method.
func TagsHandler(tags repository.TagRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			createTag(w, r, tags, logger)
		case http.MethodPut:
			updateTag(w, r, tags, logger)
		case http.MethodDelete:
			deleteTag(w, r, tags, logger)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}
}

func createTag(w http.ResponseWriter, r *http.Request, tags repository.TagRepository, logger *logger.Logger) {
	var tag model.Tag
	if err := json.NewDecoder(r.Body).Decode(&tag); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", catalog.ErrValidation))
		return
	}

	id, err := tags.CreateTag(&tag)
	if err != nil {
		logger.Error("Failed to create tag %q: %v", tag.Name, err)
		writeError(w, err)
		return
	}

	created, err := tags.GetTag(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func updateTag(w http.ResponseWriter, r *http.Request, tags repository.TagRepository, logger *logger.Logger) {
	var tag model.Tag
	if err := json.NewDecoder(r.Body).Decode(&tag); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", catalog.ErrValidation))
		return
	}
	if tag.ID == 0 {
		writeError(w, fmt.Errorf("missing tag id: %w", catalog.ErrValidation))
		return
	}

	if err := tags.UpdateTag(&tag); err != nil {
		logger.Error("Failed to update tag %d: %v", tag.ID, err)
		writeError(w, err)
		return
	}

	updated, err := tags.GetTag(tag.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func deleteTag(w http.ResponseWriter, r *http.Request, tags repository.TagRepository, logger *logger.Logger) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, fmt.Errorf("missing tag id: %w", catalog.ErrValidation))
		return
	}

	if err := tags.DeleteTag(id); err != nil {
		logger.Error("Failed to delete tag %d: %v", id, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

// ImageTagsHandler manages manual tag associations of one image: POST adds
// an association, DELETE removes one. Manual tags survive re-classification.
func ImageTagsHandler(tags repository.TagRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var assoc model.TagAssociation
			if err := json.NewDecoder(r.Body).Decode(&assoc); err != nil {
				writeError(w, fmt.Errorf("invalid request body: %w", catalog.ErrValidation))
				return
			}
			assoc.Source = model.SourceManual
			if assoc.Confidence == 0 {
				assoc.Confidence = 1
			}

			if err := tags.UpsertImageTag(&assoc); err != nil {
				logger.Error("Failed to tag image %s: %v", assoc.Hash, err)
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, assoc)

		case http.MethodDelete:
			imgHash := r.URL.Query().Get("hash")
			tagID, err := strconv.ParseInt(r.URL.Query().Get("tagId"), 10, 64)
			if imgHash == "" || err != nil {
				writeError(w, fmt.Errorf("missing hash or tagId: %w", catalog.ErrValidation))
				return
			}

			if err := tags.RemoveImageTag(imgHash, tagID); err != nil {
				logger.Error("Failed to untag image %s: %v", imgHash, err)
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"removed": imgHash})

		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}
}

// ClassifyImageHandler runs tag classification for one cataloged image and
// persists the accepted tags. A classifier outage answers 502 and leaves
// the image's prior tags untouched.
func ClassifyImageHandler(engine *classify.Engine, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		imgHash := r.URL.Query().Get("hash")
		if imgHash == "" {
			writeError(w, fmt.Errorf("missing hash parameter: %w", catalog.ErrValidation))
			return
		}

		result, err := engine.ClassifyStored(r.Context(), imgHash)
		if err != nil {
			logger.Error("Classification failed for %s: %v", imgHash, err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// ClassifyBatchHandler classifies a set of images. Per-image failures are
// counted and reported but never abort the batch.
func ClassifyBatchHandler(engine *classify.Engine, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		var request struct {
			Hashes []string `json:"hashes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeError(w, fmt.Errorf("invalid request body: %w", catalog.ErrValidation))
			return
		}
		if len(request.Hashes) == 0 {
			writeError(w, fmt.Errorf("empty hash list: %w", catalog.ErrValidation))
			return
		}

		report := engine.ClassifyBatch(r.Context(), request.Hashes)
		logger.Info("Batch classification: %d processed, %d failed", report.Processed, report.Failed)
		writeJSON(w, http.StatusOK, report)
	}
}

// PredictHandler returns the classifier's own ordered verdicts for one
// cataloged image without touching its persisted tags. Preview only.
func PredictHandler(images repository.ImageRepository, client *classify.Client,
	logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		imgHash := r.URL.Query().Get("hash")
		if imgHash == "" {
			writeError(w, fmt.Errorf("missing hash parameter: %w", catalog.ErrValidation))
			return
		}

		img, err := images.GetByHash(imgHash)
		if err != nil {
			writeError(w, err)
			return
		}

		data, err := os.ReadFile(img.Path)
		if err != nil {
			logger.Error("Failed to read image %s: %v", imgHash, err)
			writeError(w, err)
			return
		}

		predictions, err := client.Predict(r.Context(), data)
		if err != nil {
			logger.Error("Prediction failed for %s: %v", imgHash, err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"predictions": predictions})
	}
}

// ClassifierHealthHandler proxies the external classifier's health check.
func ClassifierHealthHandler(client *classify.Client, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := client.Health(r.Context())
		if err != nil {
			logger.Warning("Classifier health check failed: %v", err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}
