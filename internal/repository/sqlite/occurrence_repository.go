package sqlite

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
)

// OccurrenceRepository implements repository.OccurrenceRepository for SQLite.
type OccurrenceRepository struct {
	db *DB
}

// NewOccurrenceRepository creates a new SQLite occurrence repository.
func NewOccurrenceRepository(db *DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

// Upsert records one placement of an image inside a document. Duplicate
// scans of the same placement are ignored; an unknown image hash surfaces
// as catalog.ErrForeignKey.
func (r *OccurrenceRepository) Upsert(occ *model.Occurrence) (bool, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT OR IGNORE INTO image_document_mapping
		(img_hash, document_path, slide_index, shape_index)
		VALUES (?, ?, ?, ?)
	`, occ.Hash, occ.DocumentPath, occ.SlideIndex, occ.ShapeIndex)
	if err != nil {
		return false, fmt.Errorf("failed to upsert occurrence: %w", mapConstraintError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read upsert result: %w", err)
	}
	return affected > 0, nil
}

// ListByHash returns the live occurrences of an image. Occurrences whose
// document no longer exists on disk are deleted before the result is
// returned, keeping the catalog self-healing without a background sweep.
func (r *OccurrenceRepository) ListByHash(hash string) ([]model.Occurrence, error) {
	r.db.RLock()
	rows, err := r.db.Conn().Query(`
		SELECT img_hash, document_path, slide_index, shape_index, created_at
		FROM image_document_mapping
		WHERE img_hash = ?
		ORDER BY document_path, slide_index, shape_index
	`, hash)
	if err != nil {
		r.db.RUnlock()
		return nil, fmt.Errorf("failed to query occurrences: %w", err)
	}

	var live []model.Occurrence
	var dead []model.Occurrence
	for rows.Next() {
		var occ model.Occurrence
		if err := rows.Scan(&occ.Hash, &occ.DocumentPath, &occ.SlideIndex,
			&occ.ShapeIndex, &occ.CreatedAt); err != nil {
			rows.Close()
			r.db.RUnlock()
			return nil, fmt.Errorf("failed to scan occurrence: %w", err)
		}
		if _, statErr := os.Stat(occ.DocumentPath); os.IsNotExist(statErr) {
			dead = append(dead, occ)
			continue
		}
		live = append(live, occ)
	}
	rows.Close()
	r.db.RUnlock()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate occurrences: %w", err)
	}

	if len(dead) > 0 {
		err := r.db.WithTx(func(tx *sql.Tx) error {
			for _, occ := range dead {
				_, err := tx.Exec(`
					DELETE FROM image_document_mapping
					WHERE img_hash = ? AND document_path = ? AND slide_index = ? AND shape_index = ?
				`, occ.Hash, occ.DocumentPath, occ.SlideIndex, occ.ShapeIndex)
				if err != nil {
					return fmt.Errorf("failed to garbage-collect occurrence: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return live, nil
}

// CountByHash returns the number of recorded placements for an image.
func (r *OccurrenceRepository) CountByHash(hash string) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`
		SELECT COUNT(*) FROM image_document_mapping WHERE img_hash = ?
	`, hash).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count occurrences: %w", err)
	}
	return count, nil
}

// CountDocuments returns the number of distinct documents in the mapping.
func (r *OccurrenceRepository) CountDocuments() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`
		SELECT COUNT(DISTINCT document_path) FROM image_document_mapping
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// DeleteByDocument drops every occurrence recorded for one document.
func (r *OccurrenceRepository) DeleteByDocument(documentPath string) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		DELETE FROM image_document_mapping WHERE document_path = ?
	`, documentPath)
	if err != nil {
		return fmt.Errorf("failed to delete occurrences for document: %w", err)
	}
	return nil
}
