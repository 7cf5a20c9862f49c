// Package log provides the two output channels of wikidump.
//
// SecureHandler wraps a slog.Handler and masks credentials before records
// are written: basic-auth passwords, custom auth headers, session cookies,
// tokens, and passwords embedded in proxy URLs. Even in verbose mode these
// values never reach the log.
//
// Progress prints the user-facing export hierarchy (spaces, pages, links,
// downloads) with one tab of indentation per tree level. Warnings stay on
// the progress stream while errors go to a separate error stream.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	progress := log.NewProgress(os.Stdout, os.Stderr)
//	progress.Page(0, "Home", "65537", false)
package log
