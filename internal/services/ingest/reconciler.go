package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/hash"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/logger"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/repository"
)

// ExtractedImage is one raw image tuple yielded by the document parser.
type ExtractedImage struct {
	Bytes        []byte
	ContentType  string
	DocumentPath string
	SlideIndex   int
	ShapeIndex   int
}

// Reconciler decides "new image" vs "known image, new occurrence" and keeps
// the occurrence graph consistent with the content-addressed store.
type Reconciler struct {
	images      repository.ImageRepository
	occurrences repository.OccurrenceRepository
	storageDir  string
	logger      *logger.Logger
}

// NewReconciler creates a reconciler writing image files under storageDir.
func NewReconciler(images repository.ImageRepository, occurrences repository.OccurrenceRepository,
	storageDir string, logger *logger.Logger) *Reconciler {
	return &Reconciler{
		images:      images,
		occurrences: occurrences,
		storageDir:  storageDir,
		logger:      logger,
	}
}

// Outcome reports what one reconciliation actually changed.
type Outcome struct {
	NewImage      bool
	NewOccurrence bool
}

// Ingest runs the reconciliation state machine for one extracted tuple:
// hash, upsert image, persist bytes for a first sighting, then always
// record the occurrence.
func (r *Reconciler) Ingest(img ExtractedImage) (Outcome, error) {
	if len(img.Bytes) == 0 {
		return Outcome{}, fmt.Errorf("empty image data (slide %d, shape %d): %w",
			img.SlideIndex, img.ShapeIndex, errEmptyImage)
	}

	digest := hash.Sum(img.Bytes)
	ext := DetectExtension(img.ContentType, img.Bytes)
	width, height := DecodeDimensions(img.Bytes)
	name := digest[:8] + ext

	record := &model.Image{
		Hash:     digest,
		Path:     filepath.Join(r.storageDir, name),
		Name:     name,
		Format:   strings.ToUpper(strings.TrimPrefix(ext, ".")),
		Width:    width,
		Height:   height,
		FileSize: int64(len(img.Bytes)),
		Kind:     DetectKind(img.ContentType, width, height),
	}

	isNew, err := r.images.Upsert(record)
	if err != nil {
		return Outcome{}, err
	}

	if isNew {
		if err := r.persistBytes(record.Path, img.Bytes); err != nil {
			// The row must not outlive a failed write: an image without a
			// backing file would poison later listings.
			r.rollbackImage(digest, record.Path)
			return Outcome{}, err
		}
	} else if width > 0 && height > 0 {
		r.backfillDimensions(digest, width, height, record.Kind)
	}

	occ := &model.Occurrence{
		Hash:         digest,
		DocumentPath: img.DocumentPath,
		SlideIndex:   img.SlideIndex,
		ShapeIndex:   img.ShapeIndex,
	}
	occNew, err := r.occurrences.Upsert(occ)
	if err != nil {
		// A first sighting must land as image plus occurrence or not at
		// all; undo the row and the stored file so the pair stays atomic.
		// A known image keeps its row, it already has prior occurrences.
		if isNew {
			r.rollbackImage(digest, record.Path)
		}
		return Outcome{}, err
	}

	return Outcome{NewImage: isNew, NewOccurrence: occNew}, nil
}

// rollbackImage undoes a first sighting: the row and, if written, the file.
func (r *Reconciler) rollbackImage(digest, path string) {
	if err := r.images.Delete(digest); err != nil {
		r.logger.Error("Failed to roll back image %s: %v", digest, err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.logger.Error("Failed to remove file for rolled back image %s: %v", digest, err)
	}
}

// persistBytes writes raw bytes to the canonical content-addressed path.
func (r *Reconciler) persistBytes(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return nil
}

// backfillDimensions fills in dimensions for rows ingested before the
// format could be decoded. Best effort.
func (r *Reconciler) backfillDimensions(digest string, width, height int, kind string) {
	existing, err := r.images.GetByHash(digest)
	if err != nil || existing.Width > 0 {
		return
	}
	if err := r.images.UpdateDimensions(digest, width, height, kind); err != nil {
		r.logger.Warning("Failed to backfill dimensions for %s: %v", digest, err)
	}
}

var errEmptyImage = fmt.Errorf("image has no bytes")
