package model

import "time"

// SpaceResult holds the outcome of exporting one space.
type SpaceResult struct {
	// Key is the space key.
	Key string `json:"key"`

	// Name is the human-readable space name. Empty when the lookup failed.
	Name string `json:"name,omitempty"`

	// Folder is the output folder of the space.
	Folder string `json:"folder"`

	// PagesRendered counts pages written during this run.
	PagesRendered int `json:"pages_rendered"`

	// PagesSkipped counts unchanged pages.
	PagesSkipped int `json:"pages_skipped"`

	// PagesFailed counts pages whose subtree was pruned.
	PagesFailed int `json:"pages_failed"`

	// Attachments counts attachment records produced.
	Attachments int `json:"attachments"`

	// AttachmentErrors counts primary downloads that failed.
	AttachmentErrors int `json:"attachment_errors"`

	// Warnings counts non-fatal problems (parse failures, thumbnails, previews).
	Warnings int `json:"warnings"`

	// Root is the navigation tree of the space.
	Root *ExportedPage `json:"-"`

	// Err is set when the whole space was aborted.
	Err error `json:"-"`

	// ErrorMessage mirrors Err for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// Failed reports whether the space was aborted.
func (r *SpaceResult) Failed() bool {
	return r.Err != nil
}

// SetError records a space-level failure.
func (r *SpaceResult) SetError(err error) {
	r.Err = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// ExportSummary aggregates the results of one run.
type ExportSummary struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`

	// Mode is "incremental" or "full".
	Mode string `json:"mode"`

	// Forced is true when the incremental skip check was disabled.
	Forced bool `json:"forced"`

	// Interrupted is true when the run was cancelled.
	Interrupted bool `json:"interrupted"`

	// Spaces holds one result per attempted space, in export order.
	Spaces []*SpaceResult `json:"spaces"`
}

// Totals sums the per-space counters.
func (s *ExportSummary) Totals() SpaceResult {
	var total SpaceResult
	for _, sp := range s.Spaces {
		total.PagesRendered += sp.PagesRendered
		total.PagesSkipped += sp.PagesSkipped
		total.PagesFailed += sp.PagesFailed
		total.Attachments += sp.Attachments
		total.AttachmentErrors += sp.AttachmentErrors
		total.Warnings += sp.Warnings
	}
	return total
}

// FailedSpaces returns the number of aborted spaces.
func (s *ExportSummary) FailedSpaces() int {
	n := 0
	for _, sp := range s.Spaces {
		if sp.Failed() {
			n++
		}
	}
	return n
}

// Duration returns the wall-clock duration of the run.
func (s *ExportSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
