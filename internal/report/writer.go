package report

import (
	"io"

	"github.com/nao1215/wikidump/internal/model"
)

// Writer defines the interface for summary output.
type Writer interface {
	// Write outputs the summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(summary *model.ExportSummary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(summary *model.ExportSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// status returns a one-word run status.
func status(summary *model.ExportSummary) string {
	switch {
	case summary.Interrupted:
		return "Interrupted"
	case summary.FailedSpaces() > 0:
		return "Completed with failed spaces"
	case summary.Totals().PagesFailed > 0:
		return "Completed with failed pages"
	default:
		return "Complete"
	}
}

// walkTree calls fn for every page of the tree below root in depth-first
// order. The synthetic root itself is not visited.
func walkTree(root *model.ExportedPage, fn func(page *model.ExportedPage, depth int)) {
	if root == nil {
		return
	}
	var walk func(node *model.ExportedPage, depth int)
	walk = func(node *model.ExportedPage, depth int) {
		for _, child := range node.Children {
			fn(child, depth)
			walk(child, depth+1)
		}
	}
	walk(root, 0)
}
