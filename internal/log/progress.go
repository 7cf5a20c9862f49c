package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Progress prints the export hierarchy. A line at depth d is indented with
// d+1 tabs; space headers and run-level messages are not indented.
type Progress struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

// NewProgress returns a Progress writing informational lines to out and
// error lines to errOut. A nil writer discards its lines.
func NewProgress(out, errOut io.Writer) *Progress {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	return &Progress{out: out, errOut: errOut}
}

// Info prints an unindented informational line.
func (p *Progress) Info(format string, args ...any) {
	p.println(p.out, -1, fmt.Sprintf(format, args...))
}

// Space prints the header of a space export.
func (p *Progress) Space(counter, total int, name, key string) {
	p.println(p.out, -1, fmt.Sprintf("SPACE (%d/%d): %s (%s)", counter, total, name, key))
}

// Page prints a page line. Skipped pages carry a SKIP marker.
func (p *Progress) Page(depth int, title, id string, skipped bool) {
	line := fmt.Sprintf("PAGE: %s (%s)", title, id)
	if skipped {
		line += " SKIP"
	}
	p.println(p.out, depth, line)
}

// Link prints a rewritten link.
func (p *Progress) Link(depth int, href, target string) {
	p.println(p.out, depth, fmt.Sprintf("LINK: %s -> %s", href, target))
}

// Download prints a downloaded file name.
func (p *Progress) Download(depth int, name string) {
	p.println(p.out, depth, "DOWNLOAD: "+name)
}

// Warning prints a non-fatal problem on the informational stream.
func (p *Progress) Warning(depth int, format string, args ...any) {
	p.println(p.out, depth, "WARNING: "+fmt.Sprintf(format, args...))
}

// Error prints a problem that cut off a page, a file or a space.
func (p *Progress) Error(depth int, format string, args ...any) {
	p.println(p.errOut, depth, "ERROR: "+fmt.Sprintf(format, args...))
}

// Finished prints the completion marker.
func (p *Progress) Finished() {
	p.println(p.out, -1, "Finished!")
}

func (p *Progress) println(w io.Writer, depth int, line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(w, indent(depth)+line) //nolint:errcheck // progress output is best effort
}

func indent(depth int) string {
	if depth < 0 {
		return ""
	}
	return strings.Repeat("\t", depth+1)
}
