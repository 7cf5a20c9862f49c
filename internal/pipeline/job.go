package pipeline

import (
	"slices"

	"github.com/nao1215/wikidump/internal/model"
	"github.com/nao1215/wikidump/internal/rewrite"
)

// Job is the state of one page passing through the pipeline.
type Job struct {
	// Page is the fetched page record.
	Page model.PageRecord

	// Body is the raw HTML body as fetched.
	Body string

	// Doc is the parsed body. Nil for empty or unparseable bodies.
	Doc *rewrite.Document

	// Node is the tree node of the page. Attachments are added to it.
	Node *model.ExportedPage

	// Depth is the page depth, used for progress indentation.
	Depth int

	// Warnings collects non-fatal problems.
	Warnings []error

	// AttachmentErrors counts failed primary downloads.
	AttachmentErrors int

	// PerformedSteps lists the steps that completed.
	PerformedSteps []string
}

// NewJob creates a job for a fetched page.
func NewJob(page model.PageRecord, body string, node *model.ExportedPage, depth int) *Job {
	return &Job{
		Page:  page,
		Body:  body,
		Node:  node,
		Depth: depth,
	}
}

// Performed reports whether the named step completed.
func (j *Job) Performed(step string) bool {
	return slices.Contains(j.PerformedSteps, step)
}

// Warn records a non-fatal problem.
func (j *Job) Warn(err error) {
	if err != nil {
		j.Warnings = append(j.Warnings, err)
	}
}
