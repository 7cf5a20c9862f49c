// Package report writes the summary of an export run.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for the terminal
//   - MarkdownWriter: a Markdown report file
//   - JSONWriter: structured JSON for tool integration
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
