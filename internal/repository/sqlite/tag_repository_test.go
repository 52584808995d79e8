package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
)

func TestEnsureCategoriesSeedsOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := seedTaxonomy(t, db)

	categories, err := repo.ListCategories()
	require.NoError(t, err)
	require.Len(t, categories, 4)
	assert.Equal(t, "object", categories[0].TypeKey)
	assert.Len(t, categories[0].PromptTemplates, 4)
	assert.Equal(t, 0.5, categories[0].Threshold)

	tags, err := repo.ListTags(0)
	require.NoError(t, err)
	assert.Len(t, tags, 20)

	// Mutate the taxonomy, then re-seed: operator edits must survive.
	car := findTagByName(t, repo, "car")
	require.NoError(t, repo.DeleteTag(car.ID))
	require.NoError(t, repo.EnsureCategories(catalog.DefaultCategories()))

	tags, err = repo.ListTags(0)
	require.NoError(t, err)
	assert.Len(t, tags, 19, "re-seeding must not restore deleted tags")
}

func TestCreateTagHierarchy(t *testing.T) {
	db := setupTestDB(t)
	repo := seedTaxonomy(t, db)

	car := findTagByName(t, repo, "car")
	assert.Equal(t, 1, car.Level)

	child := &model.Tag{Name: "sports car", CategoryID: car.CategoryID, ParentID: &car.ID}
	id, err := repo.CreateTag(child)
	require.NoError(t, err)
	assert.Equal(t, 2, child.Level)

	grandchild := &model.Tag{Name: "roadster", CategoryID: car.CategoryID, ParentID: &id}
	_, err = repo.CreateTag(grandchild)
	require.NoError(t, err)
	assert.Equal(t, 3, grandchild.Level)
}

func TestCreateTagValidation(t *testing.T) {
	db := setupTestDB(t)
	repo := seedTaxonomy(t, db)

	car := findTagByName(t, repo, "car")

	_, err := repo.CreateTag(&model.Tag{Name: "   ", CategoryID: car.CategoryID})
	assert.ErrorIs(t, err, catalog.ErrValidation)

	bad := 1.5
	_, err = repo.CreateTag(&model.Tag{Name: "x", CategoryID: car.CategoryID, Threshold: &bad})
	assert.ErrorIs(t, err, catalog.ErrValidation)

	// Duplicate name within one category, case-insensitive. The error keeps
	// the driver's constraint detail alongside the sentinel.
	_, err = repo.CreateTag(&model.Tag{Name: "CAR", CategoryID: car.CategoryID})
	assert.ErrorIs(t, err, catalog.ErrConflict)
	assert.Contains(t, err.Error(), "constraint")

	// The same name in a different category is fine.
	categories, err := repo.ListCategories()
	require.NoError(t, err)
	var sceneID int64
	for _, cat := range categories {
		if cat.TypeKey == "scene" {
			sceneID = cat.ID
		}
	}
	_, err = repo.CreateTag(&model.Tag{Name: "car", CategoryID: sceneID})
	assert.NoError(t, err)

	// Unknown category is a referential error.
	_, err = repo.CreateTag(&model.Tag{Name: "orphan", CategoryID: 9999})
	assert.ErrorIs(t, err, catalog.ErrForeignKey)
}

func TestTagTree(t *testing.T) {
	db := setupTestDB(t)
	repo := seedTaxonomy(t, db)

	car := findTagByName(t, repo, "car")
	child := &model.Tag{Name: "sports car", CategoryID: car.CategoryID, ParentID: &car.ID}
	_, err := repo.CreateTag(child)
	require.NoError(t, err)

	roots, err := repo.Tree(car.CategoryID)
	require.NoError(t, err)
	require.Len(t, roots, 5, "the five seeded object tags are roots")

	foundCar := false
	for _, node := range roots {
		if node.Name == "car" {
			foundCar = true
			require.Len(t, node.Children, 1)
			assert.Equal(t, "sports car", node.Children[0].Name)
			assert.Equal(t, 2, node.Children[0].Level)
		} else {
			assert.Empty(t, node.Children)
		}
	}
	require.True(t, foundCar, "car root missing from tree")
}

func TestTagTreeUsageCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := seedTaxonomy(t, db)

	img := insertTestImage(t, db, "aaaaaaaa00000001")
	car := findTagByName(t, repo, "car")
	require.NoError(t, repo.UpsertImageTag(&model.TagAssociation{
		Hash: img.Hash, TagID: car.ID, Confidence: 0.9, Source: model.SourceAuto,
	}))

	roots, err := repo.Tree(car.CategoryID)
	require.NoError(t, err)
	for _, node := range roots {
		if node.Name == "car" {
			assert.Equal(t, 1, node.UsageCount)
		} else {
			assert.Zero(t, node.UsageCount)
		}
	}
}

func TestReplaceImageTagsKeepsManual(t *testing.T) {
	db := setupTestDB(t)
	repo := seedTaxonomy(t, db)

	img := insertTestImage(t, db, "aaaaaaaa00000001")
	car := findTagByName(t, repo, "car")
	red := findTagByName(t, repo, "red")
	blue := findTagByName(t, repo, "blue")

	// One manual tag and one automatic tag.
	require.NoError(t, repo.UpsertImageTag(&model.TagAssociation{
		Hash: img.Hash, TagID: car.ID, Confidence: 1, Source: model.SourceManual,
	}))
	require.NoError(t, repo.UpsertImageTag(&model.TagAssociation{
		Hash: img.Hash, TagID: red.ID, Confidence: 0.8, Source: model.SourceAuto,
	}))

	// Re-classification accepts only "blue".
	require.NoError(t, repo.ReplaceImageTags(img.Hash, []model.TagAssociation{
		{Hash: img.Hash, TagID: blue.ID, Confidence: 0.7, Source: model.SourceAuto},
	}))

	imageTags, err := repo.ListImageTags(img.Hash)
	require.NoError(t, err)
	require.Len(t, imageTags, 2)

	names := map[string]string{}
	for _, it := range imageTags {
		names[it.Name] = it.Source
	}
	assert.Equal(t, model.SourceManual, names["car"], "manual tag must survive")
	assert.Equal(t, model.SourceAuto, names["blue"])
	assert.NotContains(t, names, "red", "stale automatic tag must be replaced")
}

func TestReplaceImageTagsEmptyClearsAuto(t *testing.T) {
	db := setupTestDB(t)
	repo := seedTaxonomy(t, db)

	img := insertTestImage(t, db, "aaaaaaaa00000001")
	red := findTagByName(t, repo, "red")
	require.NoError(t, repo.UpsertImageTag(&model.TagAssociation{
		Hash: img.Hash, TagID: red.ID, Confidence: 0.8, Source: model.SourceAuto,
	}))

	require.NoError(t, repo.ReplaceImageTags(img.Hash, nil))

	imageTags, err := repo.ListImageTags(img.Hash)
	require.NoError(t, err)
	assert.Empty(t, imageTags)
}

func TestUpsertImageTagValidation(t *testing.T) {
	db := setupTestDB(t)
	repo := seedTaxonomy(t, db)

	img := insertTestImage(t, db, "aaaaaaaa00000001")
	car := findTagByName(t, repo, "car")

	err := repo.UpsertImageTag(&model.TagAssociation{
		Hash: img.Hash, TagID: car.ID, Confidence: 1.2, Source: model.SourceAuto,
	})
	assert.ErrorIs(t, err, catalog.ErrValidation)

	err = repo.UpsertImageTag(&model.TagAssociation{
		Hash: "feedface00000000", TagID: car.ID, Confidence: 0.5, Source: model.SourceAuto,
	})
	assert.ErrorIs(t, err, catalog.ErrForeignKey)
}

func TestDeleteTagCascadesAssociations(t *testing.T) {
	db := setupTestDB(t)
	repo := seedTaxonomy(t, db)

	img := insertTestImage(t, db, "aaaaaaaa00000001")
	car := findTagByName(t, repo, "car")
	require.NoError(t, repo.UpsertImageTag(&model.TagAssociation{
		Hash: img.Hash, TagID: car.ID, Confidence: 0.9, Source: model.SourceAuto,
	}))

	require.NoError(t, repo.DeleteTag(car.ID))

	imageTags, err := repo.ListImageTags(img.Hash)
	require.NoError(t, err)
	assert.Empty(t, imageTags)
}

func TestUpdateTag(t *testing.T) {
	db := setupTestDB(t)
	repo := seedTaxonomy(t, db)

	car := findTagByName(t, repo, "car")
	threshold := 0.8
	car.PromptWords = "a sports car"
	car.Threshold = &threshold
	require.NoError(t, repo.UpdateTag(car))

	stored, err := repo.GetTag(car.ID)
	require.NoError(t, err)
	assert.Equal(t, "a sports car", stored.PromptWords)
	require.NotNil(t, stored.Threshold)
	assert.Equal(t, 0.8, *stored.Threshold)

	missing := &model.Tag{ID: 9999, Name: "ghost"}
	assert.ErrorIs(t, repo.UpdateTag(missing), catalog.ErrNotFound)
}
