package database

import (
	"context"
	"sync"

	"github.com/nao1215/wikidump/internal/model"
)

// MemoryStore keeps cache entries in memory for the lifetime of the process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]model.CacheEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.CacheEntry)}
}

// Get returns a copy of the entry for id, or nil.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Upsert stores a copy of the entry.
func (m *MemoryStore) Upsert(_ context.Context, entry *model.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = *entry
	return nil
}

// Len returns the number of entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
