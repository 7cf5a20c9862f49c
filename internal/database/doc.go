// Package database provides the persistent page cache used for incremental exports.
//
// The cache maps a page id to the title, tiny hash, space and modification
// time recorded when the page was last rendered. Each Upsert commits on its
// own, so an interrupted export leaves the cache consistent with the pages
// that were fully written.
//
// Backends:
//   - SQLite (via modernc.org/sqlite), the default, stored in a single file
//   - PostgreSQL (via github.com/lib/pq), for shared caches
//   - Memory, for tests and one-off runs
//
// Backends are selected from a DSN with Open.
package database
