// Package export drives a wiki export: it resolves the spaces to export,
// walks each page tree depth-first, renders stale pages through the page
// pipeline and writes a navigation index per space.
//
// Every page ends in one of three states. A page is Skipped when the
// incremental cache holds an entry at least as new as the remote page, Done
// when it was rendered and written, and Failed when fetching or rendering
// failed. A failed page prunes exactly its own subtree; its siblings and the
// rest of the space are still exported.
package export
