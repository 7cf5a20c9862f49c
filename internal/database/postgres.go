package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/nao1215/wikidump/internal/model"
)

const (
	postgresTableName        = "wikidump_page_tab"
	postgresOperationTimeout = 5 * time.Second
)

// ErrEmptyDSN is returned when a PostgreSQL store is created without a DSN.
var ErrEmptyDSN = errors.New("empty PostgreSQL DSN")

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// PostgresStore is a Store backed by a PostgreSQL table.
// The connection is opened lazily on first use.
type PostgresStore struct {
	dsn       string
	tableName string
	openDB    sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

// NewPostgresStore creates a PostgreSQL store for the DSN.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	return &PostgresStore{
		dsn:       dsn,
		tableName: postgresTableName,
		openDB:    sql.Open,
	}, nil
}

// Get returns the entry for id, or nil when none exists.
func (p *PostgresStore) Get(ctx context.Context, id string) (*model.CacheEntry, error) {
	if err := p.ensureReady(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT page_id, title, hash, space, mtime FROM %s WHERE page_id = $1",
		postgresQuoteIdentifier(p.tableName))

	var entry model.CacheEntry
	var hash sql.NullString
	err := p.db.QueryRowContext(ctx, query, id).Scan(&entry.ID, &entry.Title, &hash, &entry.Space, &entry.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry %s: %w", id, err)
	}
	entry.Hash = hash.String
	return &entry, nil
}

// Upsert inserts or fully overwrites the entry.
func (p *PostgresStore) Upsert(ctx context.Context, entry *model.CacheEntry) error {
	if err := p.ensureReady(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (page_id, title, hash, space, mtime)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (page_id)
		DO UPDATE SET title = EXCLUDED.title, hash = EXCLUDED.hash,
			space = EXCLUDED.space, mtime = EXCLUDED.mtime`, postgresQuoteIdentifier(p.tableName))
	if _, err := p.db.ExecContext(ctx, query, entry.ID, entry.Title, entry.Hash, entry.Space, entry.ModifiedAt.UTC()); err != nil {
		return fmt.Errorf("failed to upsert cache entry %s: %w", entry.ID, err)
	}
	return nil
}

// Close closes the connection if it was opened.
func (p *PostgresStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *PostgresStore) ensureReady(ctx context.Context) error {
	p.initOnce.Do(func() {
		db, err := p.openDB("postgres", p.dsn)
		if err != nil {
			p.initErr = err
			return
		}
		ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
		defer cancel()

		table := postgresQuoteIdentifier(p.tableName)
		schema := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				page_id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				hash TEXT,
				space TEXT NOT NULL,
				mtime TIMESTAMPTZ NOT NULL
			)`, table)
		if _, err := db.ExecContext(ctx, schema); err != nil {
			_ = db.Close()
			p.initErr = err
			return
		}
		index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (hash)",
			postgresQuoteIdentifier(p.tableName+"_hash_idx"), table)
		if _, err := db.ExecContext(ctx, index); err != nil {
			_ = db.Close()
			p.initErr = err
			return
		}
		p.db = db
	})
	return p.initErr
}

func postgresQuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
