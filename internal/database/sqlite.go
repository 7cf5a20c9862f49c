package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/wikidump/internal/model"
)

// SQLiteStore is the default Store backed by a single SQLite file.
type SQLiteStore struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures SQLiteStore behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// OpenSQLite opens or creates the cache database at dbPath.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func OpenSQLite(dbPath string, opts Options) (*SQLiteStore, error) {
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS page_tab (
		page_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		hash TEXT,
		space TEXT NOT NULL,
		mtime TEXT NOT NULL
	);

	-- Reserved for content deduplication
	CREATE INDEX IF NOT EXISTS page_hash_idx ON page_tab(hash);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Get retrieves the cache entry for a page id.
// It returns nil without error when no entry exists.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.CacheEntry, error) {
	query := `
	SELECT page_id, title, hash, space, mtime
	FROM page_tab
	WHERE page_id = ?
	`

	var entry model.CacheEntry
	var hash sql.NullString
	var mtime string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID,
		&entry.Title,
		&hash,
		&entry.Space,
		&mtime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry %s: %w", id, err)
	}

	entry.Hash = hash.String
	entry.ModifiedAt = parseTimestamp(mtime)
	return &entry, nil
}

// Upsert inserts or fully overwrites the cache entry.
func (s *SQLiteStore) Upsert(ctx context.Context, entry *model.CacheEntry) error {
	query := `
	INSERT INTO page_tab (page_id, title, hash, space, mtime)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(page_id) DO UPDATE SET
		title = excluded.title,
		hash = excluded.hash,
		space = excluded.space,
		mtime = excluded.mtime
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Title,
		entry.Hash,
		entry.Space,
		formatTimestamp(entry.ModifiedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry %s: %w", entry.ID, err)
	}
	return nil
}
