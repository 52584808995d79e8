package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
)

// SourceRepository implements repository.SourceRepository for SQLite.
type SourceRepository struct {
	db *DB
}

// NewSourceRepository creates a new SQLite source repository.
func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Add records a scan root. Re-adding an existing path is a no-op.
func (r *SourceRepository) Add(path string) (*model.DocumentSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty source path: %w", catalog.ErrValidation)
	}

	r.db.Lock()
	defer r.db.Unlock()

	now := time.Now()
	_, err := r.db.Conn().Exec(`
		INSERT OR IGNORE INTO document_sources (path, added_at) VALUES (?, ?)
	`, path, now)
	if err != nil {
		return nil, fmt.Errorf("failed to add source: %w", err)
	}

	var src model.DocumentSource
	err = r.db.Conn().QueryRow(`
		SELECT id, path, added_at FROM document_sources WHERE path = ?
	`, path).Scan(&src.ID, &src.Path, &src.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read back source: %w", err)
	}
	return &src, nil
}

// List returns all scan roots, newest first.
func (r *SourceRepository) List() ([]model.DocumentSource, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, path, added_at FROM document_sources ORDER BY added_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []model.DocumentSource
	for rows.Next() {
		var src model.DocumentSource
		if err := rows.Scan(&src.ID, &src.Path, &src.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// Remove deletes a scan root by path.
func (r *SourceRepository) Remove(path string) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM document_sources WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read remove result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("source %s: %w", path, catalog.ErrNotFound)
	}
	return nil
}
