package dto

// ImageFilter narrows image listings.
type ImageFilter struct {
	Kind   string // background | icon | normal, empty for all
	Format string // PNG, JPG, ... empty for all
}

// ImageEntry is an image row joined with its usage data for listings.
type ImageEntry struct {
	Hash            string   `json:"hash"`
	Path            string   `json:"path"`
	Name            string   `json:"name"`
	Format          string   `json:"format"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	FileSize        int64    `json:"filesize"`
	Kind            string   `json:"kind"`
	FirstSeen       string   `json:"firstSeen"`
	OccurrenceCount int      `json:"occurrenceCount"`
	MatchedTags     int      `json:"matchedTags,omitempty"`
	Tags            []string `json:"tags"`
}
