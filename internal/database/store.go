package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/wikidump/internal/model"
)

// DefaultFileName is the SQLite file name used when the DSN names a directory.
const DefaultFileName = "wikidump.db"

// ErrUnsupportedScheme is returned by Open for an unknown DSN scheme.
var ErrUnsupportedScheme = errors.New("unsupported cache backend scheme")

// Store is the incremental state store.
// Implementations assume a single writer.
type Store interface {
	// Get returns the entry for id, or nil when none exists.
	Get(ctx context.Context, id string) (*model.CacheEntry, error)

	// Upsert inserts the entry or overwrites all fields of an existing one.
	Upsert(ctx context.Context, entry *model.CacheEntry) error

	// Close releases the backend.
	Close() error
}

// Open builds a Store from a DSN.
//
// Supported forms:
//   - "" or a plain path: SQLite file (a directory gets DefaultFileName)
//   - "sqlite://<path>" or "file://<path>": SQLite file
//   - "postgres://..." or "postgresql://...": PostgreSQL
//   - "memory://": in-memory store
//
// defaultDir is used when dsn is empty.
func Open(dsn, defaultDir string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return OpenSQLite(filepath.Join(defaultDir, DefaultFileName), DefaultOptions())
	}

	if !strings.Contains(dsn, "://") {
		return OpenSQLite(sqlitePath(dsn), DefaultOptions())
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid cache DSN: %w", err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "sqlite", "sqlite3", "file":
		path := parsed.Host + parsed.Path
		if path == "" {
			return nil, fmt.Errorf("invalid cache DSN %q: missing path", dsn)
		}
		return OpenSQLite(sqlitePath(path), DefaultOptions())
	case "postgres", "postgresql":
		return NewPostgresStore(dsn)
	case "memory", "mem", "inmem":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, parsed.Scheme)
	}
}

// sqlitePath treats paths without an extension as directories.
func sqlitePath(path string) string {
	if filepath.Ext(path) == "" {
		return filepath.Join(path, DefaultFileName)
	}
	return path
}

// timestampFormats contains the timestamp formats a backend may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time, which makes the entry stale.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// formatTimestamp stores timestamps in UTC so that text comparison and parsing agree.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
