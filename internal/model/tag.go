package model

import "time"

// Tag association sources.
const (
	SourceAuto   = "auto"
	SourceManual = "manual"
)

// TagCategory groups tags and carries the prompt templates and the default
// confidence threshold used during classification. PromptTemplates is stored
// as a single semicolon-joined column.
type TagCategory struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	TypeKey         string    `json:"type"`
	PromptTemplates []string  `json:"promptTemplates"`
	Threshold       float64   `json:"confidenceThreshold"`
	Priority        int       `json:"priority"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Tag is one taggable concept. ParentID builds the hierarchy; Level is 1 for
// roots and parent.Level+1 otherwise. PromptWords, when set, replaces the tag
// name inside prompt templates. Threshold, when set, overrides the category
// default.
type Tag struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	CategoryID  int64     `json:"categoryId"`
	ParentID    *int64    `json:"parentId,omitempty"`
	PromptWords string    `json:"promptWords,omitempty"`
	Threshold   *float64  `json:"confidenceThreshold,omitempty"`
	Level       int       `json:"level"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TagAssociation links an image to a tag with the confidence the classifier
// (or the operator) assigned. The (hash, tag) pair is unique; re-classifying
// replaces it.
type TagAssociation struct {
	Hash       string    `json:"hash"`
	TagID      int64     `json:"tagId"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ImageTag is a tag joined with its association for one image.
type ImageTag struct {
	Tag
	CategoryName string  `json:"categoryName"`
	CategoryType string  `json:"categoryType"`
	Confidence   float64 `json:"confidence"`
	Source       string  `json:"source"`
}

// EffectiveThreshold resolves the accept threshold for this tag: the tag
// override if set, else the category default, else the global floor.
func (t *Tag) EffectiveThreshold(category *TagCategory, floor float64) float64 {
	if t.Threshold != nil {
		return *t.Threshold
	}
	if category != nil && category.Threshold > 0 {
		return category.Threshold
	}
	return floor
}
