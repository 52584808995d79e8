package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/dto"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
)

// ImageRepository implements repository.ImageRepository for SQLite.
type ImageRepository struct {
	db *DB
}

// NewImageRepository creates a new SQLite image repository.
func NewImageRepository(db *DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Upsert inserts the image unless its hash already exists. The boolean
// reports whether a new row was created; an existing row is never
// overwritten, so the loser of a concurrent insert degrades to "exists".
func (r *ImageRepository) Upsert(img *model.Image) (bool, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT OR IGNORE INTO images
		(img_hash, img_path, img_name, format, width, height, file_size, img_kind, first_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, img.Hash, img.Path, img.Name, img.Format, img.Width, img.Height,
		img.FileSize, img.Kind, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to upsert image: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read upsert result: %w", err)
	}
	return affected > 0, nil
}

// GetByHash retrieves an image by its content hash.
func (r *ImageRepository) GetByHash(hash string) (*model.Image, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var img model.Image
	err := r.db.Conn().QueryRow(`
		SELECT img_hash, img_path, img_name, format, width, height, file_size, img_kind, first_seen
		FROM images WHERE img_hash = ?
	`, hash).Scan(&img.Hash, &img.Path, &img.Name, &img.Format, &img.Width,
		&img.Height, &img.FileSize, &img.Kind, &img.FirstSeen)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("image %s: %w", hash, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return &img, nil
}

// UpdateDimensions backfills width/height and kind once they are known.
// The only permitted mutation of an image row.
func (r *ImageRepository) UpdateDimensions(hash string, width, height int, kind string) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE images SET width = ?, height = ?, img_kind = ? WHERE img_hash = ?
	`, width, height, kind, hash)
	if err != nil {
		return fmt.Errorf("failed to update image dimensions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("image %s: %w", hash, catalog.ErrNotFound)
	}
	return nil
}

const imageEntryColumns = `
	i.img_hash, i.img_path, i.img_name, i.format, i.width, i.height,
	i.file_size, i.img_kind, i.first_seen,
	(SELECT COUNT(*) FROM image_document_mapping m WHERE m.img_hash = i.img_hash) AS occ_count,
	(SELECT GROUP_CONCAT(t.name) FROM image_tags it JOIN tags t ON it.tag_id = t.id
	 WHERE it.img_hash = i.img_hash) AS tag_names`

// List returns images ordered by occurrence count descending, then
// first-seen descending. Surfacing most-used images first is deliberate.
func (r *ImageRepository) List(filter *dto.ImageFilter, offset, limit int) ([]dto.ImageEntry, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT ` + imageEntryColumns + ` FROM images i WHERE 1=1`
	args := []interface{}{}

	if filter != nil && filter.Kind != "" {
		query += " AND i.img_kind = ?"
		args = append(args, filter.Kind)
	}

	if filter != nil && filter.Format != "" {
		query += " AND i.format = ?"
		args = append(args, filter.Format)
	}

	query += " ORDER BY occ_count DESC, i.first_seen DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	return scanImageEntries(rows, false)
}

// SearchByTags returns images associated with the named tags. With matchAll
// an image qualifies only when its distinct matched tag count equals the
// requested set size. Ordered by matched tags, then occurrence count.
func (r *ImageRepository) SearchByTags(tagNames []string, matchAll bool) ([]dto.ImageEntry, error) {
	if len(tagNames) == 0 {
		return nil, fmt.Errorf("empty tag list: %w", catalog.ErrValidation)
	}

	r.db.RLock()
	defer r.db.RUnlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tagNames)), ",")
	query := `
		SELECT ` + imageEntryColumns + `,
		       COUNT(DISTINCT t.name) AS matched
		FROM images i
		JOIN image_tags it ON i.img_hash = it.img_hash
		JOIN tags t ON it.tag_id = t.id
		WHERE t.name IN (` + placeholders + `)
		GROUP BY i.img_hash`

	args := make([]interface{}, 0, len(tagNames)+1)
	for _, name := range tagNames {
		args = append(args, name)
	}

	if matchAll {
		query += " HAVING COUNT(DISTINCT t.name) = ?"
		args = append(args, len(tagNames))
	}

	query += " ORDER BY matched DESC, occ_count DESC"

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search images by tags: %w", err)
	}
	defer rows.Close()

	return scanImageEntries(rows, true)
}

// scanImageEntries reads listing rows, optionally with the matched-tag count.
func scanImageEntries(rows *sql.Rows, withMatched bool) ([]dto.ImageEntry, error) {
	var entries []dto.ImageEntry
	for rows.Next() {
		var entry dto.ImageEntry
		var firstSeen time.Time
		var tagNames sql.NullString

		dest := []interface{}{
			&entry.Hash, &entry.Path, &entry.Name, &entry.Format,
			&entry.Width, &entry.Height, &entry.FileSize, &entry.Kind,
			&firstSeen, &entry.OccurrenceCount, &tagNames,
		}
		if withMatched {
			dest = append(dest, &entry.MatchedTags)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan image entry: %w", err)
		}

		entry.FirstSeen = firstSeen.Format(time.RFC3339)
		entry.Tags = []string{}
		if tagNames.Valid && tagNames.String != "" {
			entry.Tags = strings.Split(tagNames.String, ",")
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the total number of unique images.
func (r *ImageRepository) Count() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM images`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return count, nil
}

// Delete removes an image by hash. Associations and mappings cascade.
func (r *ImageRepository) Delete(hash string) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM images WHERE img_hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("image %s: %w", hash, catalog.ErrNotFound)
	}
	return nil
}

// PurgeMissing deletes every image whose stored file vanished from disk.
// Irreversible maintenance operation, not part of normal read paths.
func (r *ImageRepository) PurgeMissing() (int, error) {
	r.db.RLock()
	rows, err := r.db.Conn().Query(`SELECT img_hash, img_path FROM images`)
	if err != nil {
		r.db.RUnlock()
		return 0, fmt.Errorf("failed to query images for purge: %w", err)
	}

	var missing []string
	for rows.Next() {
		var hash, path string
		if err := rows.Scan(&hash, &path); err != nil {
			rows.Close()
			r.db.RUnlock()
			return 0, fmt.Errorf("failed to scan image for purge: %w", err)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			missing = append(missing, hash)
		}
	}
	rows.Close()
	r.db.RUnlock()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate images for purge: %w", err)
	}

	if len(missing) == 0 {
		return 0, nil
	}

	err = r.db.WithTx(func(tx *sql.Tx) error {
		for _, hash := range missing {
			if _, err := tx.Exec(`DELETE FROM images WHERE img_hash = ?`, hash); err != nil {
				return fmt.Errorf("failed to purge image %s: %w", hash, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(missing), nil
}
