// Package thumbs produces and caches badge-composited thumbnails. Thumbnail
// rendering is best-effort: it never blocks or fails cataloging.
package thumbs

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/hash"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/logger"
)

const (
	badgeInset = 5   // distance of the badge from the corner
	badgeAlpha = 200 // semi-transparent red
)

// Cache renders thumbnails into a cache directory. The cache key covers
// both the source path and the occurrence count, so a changed badge number
// lands in a new file.
type Cache struct {
	dir    string
	size   int
	logger *logger.Logger
}

// NewCache creates a thumbnail cache rendering into dir at the given edge
// length.
func NewCache(dir string, size int, logger *logger.Logger) *Cache {
	return &Cache{dir: dir, size: size, logger: logger}
}

// GetOrCreate returns the path of a cached thumbnail for the image,
// regenerating it when the cached file is missing or older than the source.
// With occurrenceCount > 1 a numeric badge is composited into the corner;
// the canonical stored image is never touched. On any render error a
// generic placeholder is returned instead.
func (c *Cache) GetOrCreate(imagePath string, occurrenceCount int) string {
	key := hash.Sum([]byte(fmt.Sprintf("%s_%d", imagePath, occurrenceCount))) + ".png"
	thumbPath := filepath.Join(c.dir, key)

	if c.isFresh(thumbPath, imagePath) {
		return thumbPath
	}

	if err := c.render(imagePath, thumbPath, occurrenceCount); err != nil {
		c.logger.Warning("Thumbnail render failed for %s: %v", imagePath, err)
		return c.placeholder()
	}
	return thumbPath
}

// isFresh reports whether the cached file exists and is at least as new as
// the source image.
func (c *Cache) isFresh(thumbPath, imagePath string) bool {
	thumbInfo, err := os.Stat(thumbPath)
	if err != nil {
		return false
	}
	srcInfo, err := os.Stat(imagePath)
	if err != nil {
		return false
	}
	return !thumbInfo.ModTime().Before(srcInfo.ModTime())
}

// render decodes the source, scales it to fit the configured edge length
// with alpha preserved, composites the badge and writes a PNG.
func (c *Cache) render(imagePath, thumbPath string, occurrenceCount int) error {
	file, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open source image: %w", err)
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return fmt.Errorf("failed to decode source image: %w", err)
	}

	thumb := c.scale(src)
	if occurrenceCount > 1 {
		drawBadge(thumb, occurrenceCount)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	out, err := os.Create(thumbPath)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, thumb); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return nil
}

// scale fits the source into the configured square, never upscaling.
func (c *Cache) scale(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	width, height := srcW, srcH
	if srcW > c.size || srcH > c.size {
		if srcW >= srcH {
			width = c.size
			height = srcH * c.size / srcW
		} else {
			height = c.size
			width = srcW * c.size / srcH
		}
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)
	return dst
}

// circleMask is an alpha mask for the badge disc.
type circleMask struct {
	center image.Point
	radius int
}

func (m *circleMask) ColorModel() color.Model { return color.AlphaModel }

func (m *circleMask) Bounds() image.Rectangle {
	return image.Rect(m.center.X-m.radius, m.center.Y-m.radius,
		m.center.X+m.radius, m.center.Y+m.radius)
}

func (m *circleMask) At(x, y int) color.Color {
	dx, dy := x-m.center.X, y-m.center.Y
	if dx*dx+dy*dy <= m.radius*m.radius {
		return color.Alpha{A: badgeAlpha}
	}
	return color.Alpha{}
}

// drawBadge composites the occurrence-count badge into the top-right
// corner: a semi-transparent red disc with the number centered in white.
func drawBadge(img *image.RGBA, count int) {
	bounds := img.Bounds()
	diameter := min(bounds.Dx(), bounds.Dy()) / 8
	if diameter < 10 {
		diameter = 10
	}

	x := bounds.Max.X - diameter - badgeInset
	y := bounds.Min.Y + badgeInset
	mask := &circleMask{
		center: image.Point{X: x + diameter/2, Y: y + diameter/2},
		radius: diameter / 2,
	}

	red := image.NewUniform(color.RGBA{R: 255, A: 255})
	xdraw.DrawMask(img, mask.Bounds(), red, image.Point{}, mask, mask.Bounds().Min, xdraw.Over)

	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
	}

	text := strconv.Itoa(count)
	textWidth := drawer.MeasureString(text)
	drawer.Dot = fixed.Point26_6{
		X: fixed.I(mask.center.X) - textWidth/2,
		Y: fixed.I(mask.center.Y + face.Ascent/2 - 1),
	}
	drawer.DrawString(text)
}

// placeholder lazily creates the generic grey placeholder thumbnail.
func (c *Cache) placeholder() string {
	path := filepath.Join(c.dir, "placeholder.png")
	if _, err := os.Stat(path); err == nil {
		return path
	}

	img := image.NewRGBA(image.Rect(0, 0, c.size, c.size))
	grey := color.RGBA{R: 200, G: 200, B: 200, A: 255}
	xdraw.Draw(img, img.Bounds(), image.NewUniform(grey), image.Point{}, xdraw.Src)

	if err := os.MkdirAll(c.dir, 0755); err == nil {
		if out, err := os.Create(path); err == nil {
			defer out.Close()
			if err := png.Encode(out, img); err != nil {
				c.logger.Error("Failed to write placeholder thumbnail: %v", err)
			}
		}
	}
	return path
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
