package dto

// IngestFailure records one failed document or shape. Reason keeps the
// underlying error text for the operator.
type IngestFailure struct {
	DocumentPath string `json:"documentPath"`
	SlideIndex   int    `json:"slideIndex,omitempty"`
	ShapeIndex   int    `json:"shapeIndex,omitempty"`
	Reason       string `json:"reason"`
}

// IngestReport is the tally returned by a folder ingestion. A batch never
// fails silently: FailureCount plus the first few reasons always come back.
type IngestReport struct {
	DocumentCount  int             `json:"documentCount"`
	NewImages      int             `json:"newImages"`
	NewOccurrences int             `json:"newOccurrences"`
	FailureCount   int             `json:"failureCount"`
	Failures       []IngestFailure `json:"failures"` // capped, see MaxReportedFailures
	Cancelled      bool            `json:"cancelled"`
}

// MaxReportedFailures caps the failure details kept in a report.
const MaxReportedFailures = 5

// AddFailure counts a failure and keeps its detail if the cap allows.
func (r *IngestReport) AddFailure(f IngestFailure) {
	r.FailureCount++
	if len(r.Failures) < MaxReportedFailures {
		r.Failures = append(r.Failures, f)
	}
}
