package catalog

import "errors"

// Sentinel errors shared by the store and the services layered on top of it.
// Absence of a row is a typed outcome, not a nil result.
var (
	// ErrNotFound is returned by lookups on an absent hash, tag or category.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint is violated outside
	// an upsert path, e.g. two tags with the same name in one category.
	ErrConflict = errors.New("already exists")

	// ErrForeignKey is returned when an occurrence or association references
	// an image or tag that does not exist yet.
	ErrForeignKey = errors.New("referenced row does not exist")

	// ErrClassification is returned when the external classifier call
	// fails, times out or answers with a malformed response.
	ErrClassification = errors.New("classification failed")

	// ErrValidation is returned for malformed input, e.g. an empty tag name
	// or a confidence outside [0,1].
	ErrValidation = errors.New("invalid input")
)
