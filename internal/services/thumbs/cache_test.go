package thumbs

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/logger"
)

func setupCache(t *testing.T) (*Cache, string) {
	t.Helper()

	dir := t.TempDir()
	cache := NewCache(dir, 200, logger.New(t.TempDir()))
	return cache, dir
}

func writeSourceImage(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}

	path := filepath.Join(t.TempDir(), "source.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func decodeThumb(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	img, err := png.Decode(file)
	require.NoError(t, err)
	return img
}

func TestThumbnailScalesToFit(t *testing.T) {
	cache, _ := setupCache(t)
	source := writeSourceImage(t, 1000, 500)

	thumbPath := cache.GetOrCreate(source, 1)
	thumb := decodeThumb(t, thumbPath)

	assert.Equal(t, 200, thumb.Bounds().Dx())
	assert.Equal(t, 100, thumb.Bounds().Dy())
}

func TestThumbnailNeverUpscales(t *testing.T) {
	cache, _ := setupCache(t)
	source := writeSourceImage(t, 50, 40)

	thumb := decodeThumb(t, cache.GetOrCreate(source, 1))
	assert.Equal(t, 50, thumb.Bounds().Dx())
	assert.Equal(t, 40, thumb.Bounds().Dy())
}

func TestThumbnailCacheHit(t *testing.T) {
	cache, _ := setupCache(t)
	source := writeSourceImage(t, 400, 300)

	first := cache.GetOrCreate(source, 1)

	// Tamper with the cached file; a cache hit must not rewrite it.
	require.NoError(t, os.WriteFile(first, []byte("sentinel"), 0644))

	second := cache.GetOrCreate(source, 1)
	assert.Equal(t, first, second)

	content, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, []byte("sentinel"), content, "fresh thumbnails are served from cache")
}

func TestThumbnailKeyVariesWithCount(t *testing.T) {
	cache, _ := setupCache(t)
	source := writeSourceImage(t, 400, 300)

	single := cache.GetOrCreate(source, 1)
	multi := cache.GetOrCreate(source, 3)
	assert.NotEqual(t, single, multi, "badge count is part of the cache key")
}

func TestThumbnailBadgeOnlyWhenReused(t *testing.T) {
	cache, _ := setupCache(t)
	source := writeSourceImage(t, 400, 300)

	plain := decodeThumb(t, cache.GetOrCreate(source, 1))
	badged := decodeThumb(t, cache.GetOrCreate(source, 3))

	// The badge is a red disc in the top-right corner. Compare the corner
	// pixel region of both renders.
	bounds := badged.Bounds()
	x := bounds.Max.X - badgeInset - 10
	y := bounds.Min.Y + badgeInset + 10

	pr, _, _, _ := plain.At(x, y).RGBA()
	br, bg, bb, _ := badged.At(x, y).RGBA()

	assert.Greater(t, br, bg, "badge corner should be predominantly red")
	assert.Greater(t, br, bb, "badge corner should be predominantly red")
	assert.NotEqual(t, pr, br, "count of one renders no badge")
}

func TestThumbnailPlaceholderOnGarbage(t *testing.T) {
	cache, dir := setupCache(t)

	garbage := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0644))

	path := cache.GetOrCreate(garbage, 1)
	assert.Equal(t, filepath.Join(dir, "placeholder.png"), path)

	thumb := decodeThumb(t, path)
	assert.Equal(t, 200, thumb.Bounds().Dx())

	// Missing sources land on the placeholder too.
	path = cache.GetOrCreate(filepath.Join(t.TempDir(), "missing.png"), 1)
	assert.Equal(t, filepath.Join(dir, "placeholder.png"), path)
}

func TestThumbnailRegeneratesWhenStale(t *testing.T) {
	cache, _ := setupCache(t)
	source := writeSourceImage(t, 400, 300)

	thumbPath := cache.GetOrCreate(source, 1)

	// Backdate the thumbnail so the source looks newer.
	info, err := os.Stat(source)
	require.NoError(t, err)
	old := info.ModTime().Add(-time.Hour)
	require.NoError(t, os.Chtimes(thumbPath, old, old))

	// Overwrite with a sentinel; regeneration must replace it.
	require.NoError(t, os.WriteFile(thumbPath, []byte("sentinel"), 0644))
	require.NoError(t, os.Chtimes(thumbPath, old, old))

	regenerated := cache.GetOrCreate(source, 1)
	content, err := os.ReadFile(regenerated)
	require.NoError(t, err)
	assert.NotEqual(t, []byte("sentinel"), content, "stale thumbnails are re-rendered")
}
