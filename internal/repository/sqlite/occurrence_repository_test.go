package sqlite

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
)

func TestOccurrenceUpsertIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOccurrenceRepository(db)

	img := insertTestImage(t, db, "aaaaaaaa00000001")
	doc := writeTestDocument(t, t.TempDir(), "deck.pptx")

	occ := &model.Occurrence{Hash: img.Hash, DocumentPath: doc, SlideIndex: 2, ShapeIndex: 3}

	created, err := repo.Upsert(occ)
	require.NoError(t, err)
	assert.True(t, created)

	// Re-scanning the same placement is a no-op.
	created, err = repo.Upsert(occ)
	require.NoError(t, err)
	assert.False(t, created)

	count, err := repo.CountByHash(img.Hash)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A different shape on the same slide is a distinct placement.
	created, err = repo.Upsert(&model.Occurrence{
		Hash: img.Hash, DocumentPath: doc, SlideIndex: 2, ShapeIndex: 4,
	})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestOccurrenceUnknownImageRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOccurrenceRepository(db)

	_, err := repo.Upsert(&model.Occurrence{
		Hash: "feedface00000000", DocumentPath: "/tmp/deck.pptx", SlideIndex: 1, ShapeIndex: 1,
	})
	assert.ErrorIs(t, err, catalog.ErrForeignKey)
}

func TestOccurrenceListGarbageCollectsDeadDocuments(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOccurrenceRepository(db)

	img := insertTestImage(t, db, "aaaaaaaa00000001")
	dir := t.TempDir()
	liveDoc := writeTestDocument(t, dir, "live.pptx")
	deadDoc := writeTestDocument(t, dir, "dead.pptx")

	for _, doc := range []string{liveDoc, deadDoc} {
		_, err := repo.Upsert(&model.Occurrence{
			Hash: img.Hash, DocumentPath: doc, SlideIndex: 1, ShapeIndex: 1,
		})
		require.NoError(t, err)
	}

	require.NoError(t, os.Remove(deadDoc))

	occs, err := repo.ListByHash(img.Hash)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, liveDoc, occs[0].DocumentPath)

	// The dead row is gone for good, not just filtered from the listing.
	count, err := repo.CountByHash(img.Hash)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOccurrenceCountDocuments(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOccurrenceRepository(db)

	img := insertTestImage(t, db, "aaaaaaaa00000001")
	other := insertTestImage(t, db, "bbbbbbbb00000002")
	dir := t.TempDir()
	deckA := writeTestDocument(t, dir, "a.pptx")
	deckB := writeTestDocument(t, dir, "b.pptx")

	for _, occ := range []model.Occurrence{
		{Hash: img.Hash, DocumentPath: deckA, SlideIndex: 1, ShapeIndex: 1},
		{Hash: img.Hash, DocumentPath: deckB, SlideIndex: 1, ShapeIndex: 1},
		{Hash: other.Hash, DocumentPath: deckA, SlideIndex: 2, ShapeIndex: 1},
	} {
		o := occ
		_, err := repo.Upsert(&o)
		require.NoError(t, err)
	}

	docs, err := repo.CountDocuments()
	require.NoError(t, err)
	assert.Equal(t, 2, docs)
}

func TestOccurrenceDeleteByDocument(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOccurrenceRepository(db)

	img := insertTestImage(t, db, "aaaaaaaa00000001")
	dir := t.TempDir()
	deckA := writeTestDocument(t, dir, "a.pptx")
	deckB := writeTestDocument(t, dir, "b.pptx")

	for _, doc := range []string{deckA, deckB} {
		_, err := repo.Upsert(&model.Occurrence{
			Hash: img.Hash, DocumentPath: doc, SlideIndex: 1, ShapeIndex: 1,
		})
		require.NoError(t, err)
	}

	require.NoError(t, repo.DeleteByDocument(deckA))

	occs, err := repo.ListByHash(img.Hash)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, deckB, occs[0].DocumentPath)
}
