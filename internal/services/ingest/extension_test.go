package ingest

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
)

// encodePNG renders a solid test image of the given size.
func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

func TestDetectExtension(t *testing.T) {
	// Decodable bytes win over the declared content type.
	assert.Equal(t, ".png", DetectExtension("image/jpeg", encodePNG(t, 4, 4)))
	assert.Equal(t, ".jpg", DetectExtension("", encodeJPEG(t, 4, 4)))

	// Undecodable bytes fall back to the declared MIME type.
	assert.Equal(t, ".emf", DetectExtension("image/x-emf", []byte{0x01, 0x00}))
	assert.Equal(t, ".jpg", DetectExtension("image/mpo", []byte{0x00}))

	// Then magic bytes.
	assert.Equal(t, ".png", DetectExtension("", []byte("\x89PNG garbage")))
	assert.Equal(t, ".bmp", DetectExtension("", []byte("BMxxxx")))

	// And a generic binary extension when nothing matched.
	assert.Equal(t, ".bin", DetectExtension("application/unknown", []byte{0xDE, 0xAD}))
}

func TestDecodeDimensions(t *testing.T) {
	width, height := DecodeDimensions(encodePNG(t, 120, 80))
	assert.Equal(t, 120, width)
	assert.Equal(t, 80, height)

	width, height = DecodeDimensions([]byte("not an image"))
	assert.Zero(t, width)
	assert.Zero(t, height)
}

func TestDetectKind(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		width       int
		height      int
		want        string
	}{
		{"non photo format", "image/gif", 500, 500, model.KindIcon},
		{"tiny png", "image/png", 64, 64, model.KindIcon},
		{"narrow strip", "image/jpeg", 1200, 40, model.KindIcon},
		{"slide background", "image/jpeg", 1920, 1080, model.KindBackground},
		{"exact background cutoff", "image/png", 800, 600, model.KindBackground},
		{"mid-sized photo", "image/jpeg", 640, 480, model.KindNormal},
		{"unknown dimensions", "image/png", 0, 0, model.KindNormal},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, DetectKind(c.contentType, c.width, c.height))
		})
	}
}
