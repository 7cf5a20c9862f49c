package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/wikidump/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
type SimpleWriter struct {
	baseWriter

	// verbose adds the exported page tree of every space.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the page tree listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.ExportSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeSpaces(&sb, summary)
	w.writeTotals(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.ExportSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         EXPORT SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	mode := summary.Mode
	if summary.Forced {
		mode += " (forced)"
	}
	sb.WriteString(fmt.Sprintf("Started:  %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", summary.Duration().Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Mode:     %s\n", mode))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", status(summary)))
	sb.WriteString("\n")
}

// writeSpaces writes one block per space.
func (w *SimpleWriter) writeSpaces(sb *strings.Builder, summary *model.ExportSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SPACES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(summary.Spaces) == 0 {
		sb.WriteString("  No spaces exported\n\n")
		return
	}

	for _, sp := range summary.Spaces {
		name := sp.Key
		if sp.Name != "" {
			name = fmt.Sprintf("%s (%s)", sp.Name, sp.Key)
		}
		if sp.Failed() {
			sb.WriteString(fmt.Sprintf("  [!] %s\n", name))
			sb.WriteString(fmt.Sprintf("      Error: %s\n", sp.ErrorMessage))
		} else {
			sb.WriteString(fmt.Sprintf("  [+] %s\n", name))
		}
		sb.WriteString(fmt.Sprintf("      Folder: %s\n", sp.Folder))
		sb.WriteString(fmt.Sprintf("      Pages: %d rendered, %d skipped, %d failed\n", sp.PagesRendered, sp.PagesSkipped, sp.PagesFailed))
		sb.WriteString(fmt.Sprintf("      Attachments: %d (%d failed)\n", sp.Attachments, sp.AttachmentErrors))
		if sp.Warnings > 0 {
			sb.WriteString(fmt.Sprintf("      Warnings: %d\n", sp.Warnings))
		}
		if w.verbose {
			walkTree(sp.Root, func(page *model.ExportedPage, depth int) {
				marker := ""
				if page.Skipped {
					marker = " (unchanged)"
				}
				sb.WriteString(fmt.Sprintf("      %s- %s -> %s%s\n", strings.Repeat("  ", depth), page.Title(), page.FileName, marker))
			})
		}
		sb.WriteString("\n")
	}
}

// writeTotals writes the run totals.
func (w *SimpleWriter) writeTotals(sb *strings.Builder, summary *model.ExportSummary) {
	total := summary.Totals()

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Spaces:      %d (%d failed)\n", len(summary.Spaces), summary.FailedSpaces()))
	sb.WriteString(fmt.Sprintf("Pages:       %d rendered, %d skipped, %d failed\n", total.PagesRendered, total.PagesSkipped, total.PagesFailed))
	sb.WriteString(fmt.Sprintf("Attachments: %d (%d failed)\n", total.Attachments, total.AttachmentErrors))
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
