package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/wikidump/internal/model"
)

// JSONWriter outputs summaries in JSON format.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is written into the report envelope.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the wikidump version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport is the envelope written by JSONWriter.
type JSONReport struct {
	// Version is the wikidump version that produced the export.
	Version string `json:"version,omitempty"`

	// Status is the one-line run status.
	Status string `json:"status"`

	// Summary is the run summary with one entry per space.
	Summary *model.ExportSummary `json:"summary"`

	// Totals sums the per-space counters.
	Totals JSONTotals `json:"totals"`

	// Trees holds the exported page tree of each successful space, keyed by space key.
	Trees map[string][]*model.ExportedPage `json:"trees,omitempty"`
}

// JSONTotals is the serialized form of the run totals.
type JSONTotals struct {
	Spaces           int `json:"spaces"`
	FailedSpaces     int `json:"failed_spaces"`
	PagesRendered    int `json:"pages_rendered"`
	PagesSkipped     int `json:"pages_skipped"`
	PagesFailed      int `json:"pages_failed"`
	Attachments      int `json:"attachments"`
	AttachmentErrors int `json:"attachment_errors"`
	Warnings         int `json:"warnings"`
}

// NewJSONReport builds the envelope for summary.
func NewJSONReport(summary *model.ExportSummary, version string) *JSONReport {
	t := summary.Totals()
	r := &JSONReport{
		Version: version,
		Status:  status(summary),
		Summary: summary,
		Totals: JSONTotals{
			Spaces:           len(summary.Spaces),
			FailedSpaces:     summary.FailedSpaces(),
			PagesRendered:    t.PagesRendered,
			PagesSkipped:     t.PagesSkipped,
			PagesFailed:      t.PagesFailed,
			Attachments:      t.Attachments,
			AttachmentErrors: t.AttachmentErrors,
			Warnings:         t.Warnings,
		},
	}
	for _, sp := range summary.Spaces {
		if sp.Root == nil || len(sp.Root.Children) == 0 {
			continue
		}
		if r.Trees == nil {
			r.Trees = make(map[string][]*model.ExportedPage)
		}
		r.Trees[sp.Key] = sp.Root.Children
	}
	return r
}

// Write outputs the summary wrapped in a JSONReport.
func (w *JSONWriter) Write(summary *model.ExportSummary) (int, error) {
	return w.writeJSON(NewJSONReport(summary, w.version))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
