package dto

// ProgressEvent is emitted after each document (and each shape) during
// ingestion. Done/Total count documents within the batch.
type ProgressEvent struct {
	Stage        string `json:"stage"` // document | shape | finished
	DocumentPath string `json:"documentPath,omitempty"`
	SlideIndex   int    `json:"slideIndex,omitempty"`
	ShapeIndex   int    `json:"shapeIndex,omitempty"`
	Done         int    `json:"done"`
	Total        int    `json:"total"`
	Message      string `json:"message,omitempty"`
}

// ProgressFunc receives progress events. Returning false requests
// cancellation: in-flight documents finish, no new one is started.
type ProgressFunc func(ProgressEvent) bool
