package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/dto"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/logger"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/repository"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/services/thumbs"
)

// ListImagesHandler lists cataloged images, most-used first.
// Query: kind, format, page, limit.
func ListImagesHandler(images repository.ImageRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.ImageFilter{
			Kind:   q.Get("kind"),
			Format: q.Get("format"),
		}

		entries, err := images.List(filter, (page-1)*limit, limit)
		if err != nil {
			logger.Error("Failed to list images: %v", err)
			writeError(w, err)
			return
		}

		total, err := images.Count()
		if err != nil {
			logger.Error("Failed to count images: %v", err)
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"images":      entries,
			"total":       total,
			"currentPage": page,
			"pageSize":    limit,
		})
	}
}

// SearchByTagsHandler searches images by tag names.
// Query: tags (comma separated), matchAll.
func SearchByTagsHandler(images repository.ImageRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		raw := strings.TrimSpace(q.Get("tags"))
		if raw == "" {
			writeError(w, fmt.Errorf("missing tags parameter: %w", catalog.ErrValidation))
			return
		}

		var names []string
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}

		entries, err := images.SearchByTags(names, q.Get("matchAll") == "true")
		if err != nil {
			logger.Error("Failed to search images: %v", err)
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"images": entries})
	}
}

// GetImageHandler returns one image with its tags and live occurrences.
// Listing occurrences garbage-collects placements whose document vanished.
func GetImageHandler(images repository.ImageRepository, occurrences repository.OccurrenceRepository,
	tags repository.TagRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		occs, err := occurrences.ListByHash(imgHash)
		if err != nil {
			logger.Error("Failed to list occurrences for %s: %v", imgHash, err)
			writeError(w, err)
			return
		}

		imageTags, err := tags.ListImageTags(imgHash)
		if err != nil {
			logger.Error("Failed to list tags for %s: %v", imgHash, err)
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"image":       img,
			"occurrences": occs,
			"tags":        imageTags,
		})
	}
}

// DeleteImageHandler removes one image; associations and mappings cascade.
func DeleteImageHandler(images repository.ImageRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		imgHash := r.URL.Query().Get("hash")
		if imgHash == "" {
			writeError(w, fmt.Errorf("missing hash parameter: %w", catalog.ErrValidation))
			return
		}

		if err := images.Delete(imgHash); err != nil {
			logger.Error("Failed to delete image %s: %v", imgHash, err)
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"deleted": imgHash})
	}
}

// PurgeMissingHandler removes every image whose backing file vanished.
// Maintenance operation, irreversible.
func PurgeMissingHandler(images repository.ImageRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		purged, err := images.PurgeMissing()
		if err != nil {
			logger.Error("Purge failed: %v", err)
			writeError(w, err)
			return
		}

		logger.Info("Purged %d images with missing files", purged)
		writeJSON(w, http.StatusOK, map[string]int{"purged": purged})
	}
}

// ThumbnailHandler serves the badge-composited thumbnail for one image.
// Thumbnailing is best-effort; a placeholder comes back on render trouble.
func ThumbnailHandler(images repository.ImageRepository, occurrences repository.OccurrenceRepository,
	cache *thumbs.Cache, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		count, err := occurrences.CountByHash(imgHash)
		if err != nil {
			logger.Error("Failed to count occurrences for %s: %v", imgHash, err)
			count = 0
		}

		http.ServeFile(w, r, cache.GetOrCreate(img.Path, count))
	}
}

// StatsHandler reports catalog totals.
func StatsHandler(images repository.ImageRepository, occurrences repository.OccurrenceRepository,
	logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageCount, err := images.Count()
		if err != nil {
			writeError(w, err)
			return
		}

		documentCount, err := occurrences.CountDocuments()
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]int{
			"images":    imageCount,
			"documents": documentCount,
		})
	}
}
