package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// insertTestImage stores an image row with a real backing file so purge and
// occurrence GC logic see a live catalog entry.
func insertTestImage(t *testing.T, db *DB, hash string) *model.Image {
	t.Helper()

	path := filepath.Join(t.TempDir(), hash+".png")
	if err := os.WriteFile(path, []byte("fake image bytes "+hash), 0644); err != nil {
		t.Fatalf("Failed to write image file: %v", err)
	}

	img := &model.Image{
		Hash:     hash,
		Path:     path,
		Name:     hash[:8] + ".png",
		Format:   "PNG",
		Width:    640,
		Height:   480,
		FileSize: 1024,
		Kind:     model.KindNormal,
	}

	created, err := NewImageRepository(db).Upsert(img)
	if err != nil {
		t.Fatalf("Failed to insert image %s: %v", hash, err)
	}
	if !created {
		t.Fatalf("Image %s unexpectedly already existed", hash)
	}
	return img
}

func seedTaxonomy(t *testing.T, db *DB) *TagRepository {
	t.Helper()

	repo := NewTagRepository(db)
	if err := repo.EnsureCategories(catalog.DefaultCategories()); err != nil {
		t.Fatalf("Failed to seed categories: %v", err)
	}
	return repo
}

// writeTestDocument creates a placeholder document file so occurrence GC
// treats its placements as live.
func writeTestDocument(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake deck"), 0644); err != nil {
		t.Fatalf("Failed to write document file: %v", err)
	}
	return path
}

func findTagByName(t *testing.T, repo *TagRepository, name string) *model.Tag {
	t.Helper()

	tags, err := repo.ListTags(0)
	if err != nil {
		t.Fatalf("Failed to list tags: %v", err)
	}
	for i := range tags {
		if tags[i].Name == name {
			return &tags[i]
		}
	}
	t.Fatalf("Tag %q not found in seeded taxonomy", name)
	return nil
}
