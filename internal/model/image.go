package model

import "time"

// Image kinds, assigned once at extraction time.
const (
	KindBackground = "background"
	KindIcon       = "icon"
	KindNormal     = "normal"
)

// Image represents one unique image, keyed by the hash of its raw bytes.
// There is exactly one row per distinct hash no matter how many documents
// reference it.
type Image struct {
	Hash      string    `json:"hash"`
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Format    string    `json:"format"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	FileSize  int64     `json:"filesize"`
	Kind      string    `json:"kind"`
	FirstSeen time.Time `json:"firstSeen"`
}

// Occurrence represents one placement of an image inside one document.
type Occurrence struct {
	Hash         string    `json:"hash"`
	DocumentPath string    `json:"documentPath"`
	SlideIndex   int       `json:"slideIndex"`
	ShapeIndex   int       `json:"shapeIndex"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DocumentSource is an operator-contributed scan root.
type DocumentSource struct {
	ID      int64     `json:"id"`
	Path    string    `json:"path"`
	AddedAt time.Time `json:"addedAt"`
}
