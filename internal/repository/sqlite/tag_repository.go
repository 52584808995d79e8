package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/dto"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
)

// TagRepository implements repository.TagRepository for SQLite.
type TagRepository struct {
	db *DB
}

// NewTagRepository creates a new SQLite tag repository.
func NewTagRepository(db *DB) *TagRepository {
	return &TagRepository{db: db}
}

// EnsureCategories seeds categories and their tags on first run only. When
// the category table already has rows the seed is left untouched, so
// operator edits survive restarts.
func (r *TagRepository) EnsureCategories(seed []catalog.CategorySeed) error {
	r.db.RLock()
	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM tag_categories`).Scan(&count)
	r.db.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	return r.db.WithTx(func(tx *sql.Tx) error {
		for _, cat := range seed {
			result, err := tx.Exec(`
				INSERT INTO tag_categories (name, type, prompt_template, confidence_threshold, priority)
				VALUES (?, ?, ?, ?, ?)
			`, cat.Name, cat.TypeKey, strings.Join(cat.Prompts, ";"), cat.Threshold, cat.Priority)
			if err != nil {
				return fmt.Errorf("failed to seed category %s: %w", cat.TypeKey, err)
			}

			categoryID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to read seeded category id: %w", err)
			}

			for _, tagName := range cat.Tags {
				_, err := tx.Exec(`
					INSERT INTO tags (name, category_id, level) VALUES (?, ?, 1)
				`, tagName, categoryID)
				if err != nil {
					return fmt.Errorf("failed to seed tag %s: %w", tagName, err)
				}
			}
		}
		return nil
	})
}

// ListCategories returns all categories ordered by display priority.
func (r *TagRepository) ListCategories() ([]model.TagCategory, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, name, type, prompt_template, confidence_threshold, priority, created_at
		FROM tag_categories
		ORDER BY priority
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []model.TagCategory
	for rows.Next() {
		cat, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *cat)
	}
	return categories, rows.Err()
}

// GetCategory retrieves one category by id.
func (r *TagRepository) GetCategory(id int64) (*model.TagCategory, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, name, type, prompt_template, confidence_threshold, priority, created_at
		FROM tag_categories WHERE id = ?
	`, id)

	cat, err := scanCategory(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category %d: %w", id, catalog.ErrNotFound)
	}
	return cat, err
}

func scanCategory(scan func(...interface{}) error) (*model.TagCategory, error) {
	var cat model.TagCategory
	var templates sql.NullString
	err := scan(&cat.ID, &cat.Name, &cat.TypeKey, &templates,
		&cat.Threshold, &cat.Priority, &cat.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	if templates.Valid && templates.String != "" {
		cat.PromptTemplates = strings.Split(templates.String, ";")
	}
	return &cat, nil
}

// CreateTag inserts a tag. Level is derived from the parent: roots are
// level 1, children parent.Level+1, so cycles cannot be constructed.
func (r *TagRepository) CreateTag(tag *model.Tag) (int64, error) {
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Name == "" {
		return 0, fmt.Errorf("empty tag name: %w", catalog.ErrValidation)
	}
	if tag.Threshold != nil && (*tag.Threshold < 0 || *tag.Threshold > 1) {
		return 0, fmt.Errorf("threshold %f outside [0,1]: %w", *tag.Threshold, catalog.ErrValidation)
	}

	level := 1
	if tag.ParentID != nil {
		parent, err := r.GetTag(*tag.ParentID)
		if err != nil {
			return 0, fmt.Errorf("parent tag: %w", err)
		}
		level = parent.Level + 1
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO tags (name, category_id, parent_id, prompt_words, confidence_threshold, level)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tag.Name, tag.CategoryID, tag.ParentID, nullIfEmpty(tag.PromptWords), tag.Threshold, level)
	if err != nil {
		return 0, fmt.Errorf("failed to insert tag: %w", mapConstraintError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read tag id: %w", err)
	}
	tag.ID = id
	tag.Level = level
	return id, nil
}

// GetTag retrieves one tag by id.
func (r *TagRepository) GetTag(id int64) (*model.Tag, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var tag model.Tag
	var promptWords sql.NullString
	err := r.db.Conn().QueryRow(`
		SELECT id, name, category_id, parent_id, prompt_words, confidence_threshold, level, created_at
		FROM tags WHERE id = ?
	`, id).Scan(&tag.ID, &tag.Name, &tag.CategoryID, &tag.ParentID,
		&promptWords, &tag.Threshold, &tag.Level, &tag.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tag %d: %w", id, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	tag.PromptWords = promptWords.String
	return &tag, nil
}

// ListTags returns tags, optionally restricted to one category (0 = all).
func (r *TagRepository) ListTags(categoryID int64) ([]model.Tag, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, name, category_id, parent_id, prompt_words, confidence_threshold, level, created_at
		FROM tags`
	args := []interface{}{}
	if categoryID > 0 {
		query += " WHERE category_id = ?"
		args = append(args, categoryID)
	}
	query += " ORDER BY level, name"

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var tag model.Tag
		var promptWords sql.NullString
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CategoryID, &tag.ParentID,
			&promptWords, &tag.Threshold, &tag.Level, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tag.PromptWords = promptWords.String
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// UpdateTag updates the mutable fields of a tag.
func (r *TagRepository) UpdateTag(tag *model.Tag) error {
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Name == "" {
		return fmt.Errorf("empty tag name: %w", catalog.ErrValidation)
	}
	if tag.Threshold != nil && (*tag.Threshold < 0 || *tag.Threshold > 1) {
		return fmt.Errorf("threshold %f outside [0,1]: %w", *tag.Threshold, catalog.ErrValidation)
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE tags SET name = ?, prompt_words = ?, confidence_threshold = ? WHERE id = ?
	`, tag.Name, nullIfEmpty(tag.PromptWords), tag.Threshold, tag.ID)
	if err != nil {
		return fmt.Errorf("failed to update tag: %w", mapConstraintError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tag %d: %w", tag.ID, catalog.ErrNotFound)
	}
	return nil
}

// DeleteTag removes a tag. Its image associations cascade away.
func (r *TagRepository) DeleteTag(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", mapConstraintError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tag %d: %w", id, catalog.ErrNotFound)
	}
	return nil
}

// Tree loads every tag (optionally one category) with usage counts and
// assembles the hierarchy in a single pass over parent edges.
func (r *TagRepository) Tree(categoryID int64) ([]*dto.TagNode, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT t.id, t.name, t.category_id, t.parent_id, t.level,
		       COALESCE(tc.name, ''), COALESCE(tc.type, ''),
		       (SELECT COUNT(*) FROM image_tags it WHERE it.tag_id = t.id) AS usage_count
		FROM tags t
		LEFT JOIN tag_categories tc ON t.category_id = tc.id`
	args := []interface{}{}
	if categoryID > 0 {
		query += " WHERE t.category_id = ?"
		args = append(args, categoryID)
	}
	query += " ORDER BY t.level, t.name"

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag tree: %w", err)
	}
	defer rows.Close()

	arena := make(map[int64]*dto.TagNode)
	var ordered []*dto.TagNode
	for rows.Next() {
		node := &dto.TagNode{Children: []*dto.TagNode{}}
		if err := rows.Scan(&node.ID, &node.Name, &node.CategoryID, &node.ParentID,
			&node.Level, &node.CategoryName, &node.CategoryType, &node.UsageCount); err != nil {
			return nil, fmt.Errorf("failed to scan tag node: %w", err)
		}
		arena[node.ID] = node
		ordered = append(ordered, node)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Children were created after parents (enforced by CreateTag), and the
	// level ordering above guarantees parents are in the arena first.
	var roots []*dto.TagNode
	for _, node := range ordered {
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := arena[*node.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}
	return roots, nil
}

// UpsertImageTag writes one association, replacing any previous confidence
// for the same (hash, tag) pair.
func (r *TagRepository) UpsertImageTag(assoc *model.TagAssociation) error {
	if err := validateAssociation(assoc); err != nil {
		return err
	}

	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT OR REPLACE INTO image_tags (img_hash, tag_id, confidence, source)
		VALUES (?, ?, ?, ?)
	`, assoc.Hash, assoc.TagID, assoc.Confidence, assoc.Source)
	if err != nil {
		return fmt.Errorf("failed to upsert image tag: %w", mapConstraintError(err))
	}
	return nil
}

// ReplaceImageTags swaps the automatic tag set of an image for the accepted
// one inside a single transaction. Manual tags are preserved; rejected tags
// below threshold simply never make it back in. Nothing is written on error.
func (r *TagRepository) ReplaceImageTags(hash string, accepted []model.TagAssociation) error {
	for i := range accepted {
		if err := validateAssociation(&accepted[i]); err != nil {
			return err
		}
	}

	return r.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			DELETE FROM image_tags WHERE img_hash = ? AND source = ?
		`, hash, model.SourceAuto)
		if err != nil {
			return fmt.Errorf("failed to clear previous tags: %w", err)
		}

		for _, assoc := range accepted {
			_, err := tx.Exec(`
				INSERT OR REPLACE INTO image_tags (img_hash, tag_id, confidence, source)
				VALUES (?, ?, ?, ?)
			`, hash, assoc.TagID, assoc.Confidence, assoc.Source)
			if err != nil {
				return fmt.Errorf("failed to insert tag %d: %w", assoc.TagID, mapConstraintError(err))
			}
		}
		return nil
	})
}

// ListImageTags returns the tags of one image with category context,
// ordered by category priority, then level, then name.
func (r *TagRepository) ListImageTags(hash string) ([]model.ImageTag, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT t.id, t.name, t.category_id, t.parent_id, t.prompt_words,
		       t.confidence_threshold, t.level, t.created_at,
		       COALESCE(tc.name, ''), COALESCE(tc.type, ''),
		       it.confidence, it.source
		FROM image_tags it
		JOIN tags t ON it.tag_id = t.id
		LEFT JOIN tag_categories tc ON t.category_id = tc.id
		WHERE it.img_hash = ?
		ORDER BY tc.priority, t.level, t.name
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to query image tags: %w", err)
	}
	defer rows.Close()

	var tags []model.ImageTag
	for rows.Next() {
		var it model.ImageTag
		var promptWords sql.NullString
		if err := rows.Scan(&it.ID, &it.Name, &it.CategoryID, &it.ParentID,
			&promptWords, &it.Threshold, &it.Level, &it.CreatedAt,
			&it.CategoryName, &it.CategoryType, &it.Confidence, &it.Source); err != nil {
			return nil, fmt.Errorf("failed to scan image tag: %w", err)
		}
		it.PromptWords = promptWords.String
		tags = append(tags, it)
	}
	return tags, rows.Err()
}

// RemoveImageTag deletes one association.
func (r *TagRepository) RemoveImageTag(hash string, tagID int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		DELETE FROM image_tags WHERE img_hash = ? AND tag_id = ?
	`, hash, tagID)
	if err != nil {
		return fmt.Errorf("failed to remove image tag: %w", err)
	}
	return nil
}

func validateAssociation(assoc *model.TagAssociation) error {
	if assoc.Confidence < 0 || assoc.Confidence > 1 {
		return fmt.Errorf("confidence %f outside [0,1]: %w", assoc.Confidence, catalog.ErrValidation)
	}
	if assoc.Source == "" {
		assoc.Source = model.SourceAuto
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
