package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/wikidump/internal/model"
)

// MarkdownWriter outputs summaries in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.ExportSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeTotals(md, summary)
	w.writeSpaces(md, summary)
	w.writeTrees(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.ExportSummary) {
	mode := summary.Mode
	if summary.Forced {
		mode += " (forced)"
	}

	md.H1("Wiki Export Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration().String()},
			{"Mode", mode},
			{"Status", status(summary)},
		},
	})
	md.PlainText("")
}

// writeTotals writes the page state distribution and an alert.
func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, summary *model.ExportSummary) {
	total := summary.Totals()

	md.H2("Totals")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Item", "Count"},
		Rows: [][]string{
			{"Spaces", strconv.Itoa(len(summary.Spaces))},
			{"Failed spaces", strconv.Itoa(summary.FailedSpaces())},
			{"Rendered pages", strconv.Itoa(total.PagesRendered)},
			{"Unchanged pages", strconv.Itoa(total.PagesSkipped)},
			{"Failed pages", strconv.Itoa(total.PagesFailed)},
			{"Attachments", strconv.Itoa(total.Attachments)},
			{"Failed attachments", strconv.Itoa(total.AttachmentErrors)},
			{"Warnings", strconv.Itoa(total.Warnings)},
		},
	})
	md.PlainText("")

	if total.PagesRendered+total.PagesSkipped+total.PagesFailed > 0 {
		w.writePieChart(md, total)
	}

	switch {
	case summary.Interrupted:
		md.Cautionf("The export was interrupted after %d space(s). Files already written remain in place.", len(summary.Spaces))
	case summary.FailedSpaces() > 0:
		md.Cautionf("%d space(s) could not be exported.", summary.FailedSpaces())
	case total.PagesFailed > 0 || total.AttachmentErrors > 0:
		md.Warningf("%d page(s) and %d attachment(s) failed. Their subtrees are missing from the space index.", total.PagesFailed, total.AttachmentErrors)
	case total.Warnings > 0:
		md.Note("The export completed with warnings.")
	default:
		md.Tip("All pages were exported.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of page states.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, total model.SpaceResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page States"),
		piechart.WithShowData(true),
	)

	if total.PagesRendered > 0 {
		chart.LabelAndIntValue("Rendered", uint64(total.PagesRendered))
	}
	if total.PagesSkipped > 0 {
		chart.LabelAndIntValue("Unchanged", uint64(total.PagesSkipped))
	}
	if total.PagesFailed > 0 {
		chart.LabelAndIntValue("Failed", uint64(total.PagesFailed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeSpaces writes the per-space table.
func (w *MarkdownWriter) writeSpaces(md *markdown.Markdown, summary *model.ExportSummary) {
	md.H2("Spaces")
	md.PlainText("")

	if len(summary.Spaces) == 0 {
		md.PlainText("No spaces exported.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(summary.Spaces))
	for _, sp := range summary.Spaces {
		result := "✅"
		if sp.Failed() {
			result = "❌ " + escapeCell(sp.ErrorMessage)
		}
		rows = append(rows, []string{
			"`" + sp.Key + "`",
			escapeCell(sp.Name),
			strconv.Itoa(sp.PagesRendered),
			strconv.Itoa(sp.PagesSkipped),
			strconv.Itoa(sp.PagesFailed),
			fmt.Sprintf("%d (%d failed)", sp.Attachments, sp.AttachmentErrors),
			result,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Key", "Name", "Rendered", "Unchanged", "Failed", "Attachments", "Result"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeTrees writes the exported page tree of every space as a collapsible block.
func (w *MarkdownWriter) writeTrees(md *markdown.Markdown, summary *model.ExportSummary) {
	var wrote bool
	for _, sp := range summary.Spaces {
		if sp.Root == nil || len(sp.Root.Children) == 0 {
			continue
		}
		if !wrote {
			md.H2("Page Trees")
			md.PlainText("")
			wrote = true
		}

		var sb strings.Builder
		walkTree(sp.Root, func(page *model.ExportedPage, depth int) {
			sb.WriteString(strings.Repeat("  ", depth))
			sb.WriteString("- ")
			sb.WriteString(page.Title())
			sb.WriteString(" → `")
			sb.WriteString(page.FileName)
			sb.WriteString("`")
			if page.Skipped {
				sb.WriteString(" (unchanged)")
			}
			sb.WriteString("\n")
		})
		md.Details(sp.Key, sb.String())
	}
	if wrote {
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [wikidump](https://github.com/nao1215/wikidump)*")
}

// escapeCell keeps table cells on one line and escapes column separators.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
