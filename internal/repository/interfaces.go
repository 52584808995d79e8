package repository

import (
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/dto"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
)

// ImageRepository defines image data operations.
type ImageRepository interface {
	// Upsert inserts the image if its hash is unseen and reports whether a
	// new row was created. An existing row is left untouched.
	Upsert(img *model.Image) (bool, error)

	GetByHash(hash string) (*model.Image, error)
	UpdateDimensions(hash string, width, height int, kind string) error

	// List returns images ordered by occurrence count, most-used first,
	// ties broken by recency.
	List(filter *dto.ImageFilter, offset, limit int) ([]dto.ImageEntry, error)

	// SearchByTags returns images carrying the named tags. With matchAll an
	// image qualifies only when it carries every requested tag.
	SearchByTags(tagNames []string, matchAll bool) ([]dto.ImageEntry, error)

	Count() (int, error)
	Delete(hash string) error

	// PurgeMissing removes rows whose stored file no longer exists on disk
	// and returns how many were removed. Cascades to associations/mappings.
	PurgeMissing() (int, error)
}

// OccurrenceRepository defines image-document mapping operations.
type OccurrenceRepository interface {
	// Upsert is insert-or-ignore on the full placement key. The boolean
	// reports whether the placement was new.
	Upsert(occ *model.Occurrence) (bool, error)

	// ListByHash returns live occurrences. Occurrences whose document no
	// longer resolves on disk are deleted on the way out.
	ListByHash(hash string) ([]model.Occurrence, error)

	CountByHash(hash string) (int, error)
	CountDocuments() (int, error)
	DeleteByDocument(documentPath string) error
}

// TagRepository defines taxonomy and association operations.
type TagRepository interface {
	// EnsureCategories seeds the taxonomy, but only when the category table
	// is empty. Idempotent across restarts.
	EnsureCategories(seed []catalog.CategorySeed) error

	ListCategories() ([]model.TagCategory, error)
	GetCategory(id int64) (*model.TagCategory, error)

	CreateTag(tag *model.Tag) (int64, error)
	GetTag(id int64) (*model.Tag, error)
	ListTags(categoryID int64) ([]model.Tag, error)
	UpdateTag(tag *model.Tag) error
	DeleteTag(id int64) error

	// Tree builds the tag hierarchy in one pass over parent edges.
	Tree(categoryID int64) ([]*dto.TagNode, error)

	UpsertImageTag(assoc *model.TagAssociation) error

	// ReplaceImageTags transactionally swaps the automatic tag set of an
	// image for the accepted one. Manual tags are kept.
	ReplaceImageTags(hash string, accepted []model.TagAssociation) error

	ListImageTags(hash string) ([]model.ImageTag, error)
	RemoveImageTag(hash string, tagID int64) error
}

// SettingsRepository is a flat key/value store.
type SettingsRepository interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// SourceRepository tracks operator-contributed scan roots.
type SourceRepository interface {
	Add(path string) (*model.DocumentSource, error)
	List() ([]model.DocumentSource, error)
	Remove(path string) error
}
