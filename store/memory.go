package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"restock-watcher/internal/types"
)

type key struct {
	url  string
	size types.SizeKey
}

// MemoryStore keeps statuses for the lifetime of the process
type MemoryStore struct {
	mu      sync.RWMutex
	records map[key]Record
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[key]Record)}
}

// Get returns the last status recorded for size on url and whether one exists
func (m *MemoryStore) Get(ctx context.Context, url string, size types.SizeKey) (types.Status, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[key{url, size}]
	return r.Status, ok, nil
}

// Put records status as the latest status of size on url
func (m *MemoryStore) Put(ctx context.Context, url string, size types.SizeKey, status types.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key{url, size}] = Record{
		URL:       url,
		Size:      size,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// List returns the records ordered by URL then size
func (m *MemoryStore) List(ctx context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].URL != out[j].URL {
			return out[i].URL < out[j].URL
		}
		return out[i].Size < out[j].Size
	})
	return out, nil
}

// Close is a no-op; the records live until the process exits
func (m *MemoryStore) Close() error {
	return nil
}
