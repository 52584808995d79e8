package ingest

import (
	"bytes"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/model"
)

// mimeExtensions maps declared content types to storage extensions.
var mimeExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/x-emf":   ".emf",
	"image/x-wmf":   ".wmf",
	"image/webp":    ".webp",
	"image/x-icon":  ".ico",
	"image/svg+xml": ".svg",
	"image/mpo":     ".jpg", // MPO is multi-frame JPEG
}

// magicExtensions resolves extensions from well-known file headers.
var magicExtensions = []struct {
	prefix []byte
	ext    string
}{
	{[]byte("\x89PNG"), ".png"},
	{[]byte("\xFF\xD8"), ".jpg"},
	{[]byte("GIF8"), ".gif"},
	{[]byte("BM"), ".bmp"},
	{[]byte("II*\x00"), ".tiff"},
	{[]byte("MM\x00*"), ".tiff"},
}

// DetectExtension picks the storage extension for raw image bytes. An
// embedded format sniff wins, then the declared MIME type, then magic
// bytes, then a generic binary extension. Never fails the ingestion.
func DetectExtension(contentType string, data []byte) string {
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && format != "" {
		if format == "jpeg" {
			return ".jpg"
		}
		return "." + format
	}

	if ext, ok := mimeExtensions[contentType]; ok {
		return ext
	}

	for _, magic := range magicExtensions {
		if bytes.HasPrefix(data, magic.prefix) {
			return magic.ext
		}
	}

	return ".bin"
}

// DecodeDimensions reads width/height from the image header. Zero values
// mean the format could not be decoded; ingestion continues regardless.
func DecodeDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// DetectKind classifies an image as background, icon or normal. Only JPEG
// and PNG participate fully in the catalog; other content types are kept
// but marked icon. Tiny images are icons, large ones likely backgrounds.
func DetectKind(contentType string, width, height int) string {
	if contentType != "image/jpeg" && contentType != "image/png" {
		return model.KindIcon
	}
	if width == 0 || height == 0 {
		return model.KindNormal
	}
	if width < 100 || height < 100 {
		return model.KindIcon
	}
	if width >= 800 && height >= 600 {
		return model.KindBackground
	}
	return model.KindNormal
}
