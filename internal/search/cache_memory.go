package search

import (
	"context"
	"sync"
	"time"
)

const memoryStoreMaxEntries = 400

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is the in-process KV fallback for deployments without Redis.
// Expiry is passive: entries are checked on read and swept on write.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return entry.payload, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.entries[key] = memoryEntry{payload: value, expiresAt: now.Add(ttl)}
	m.sweepLocked(now)
	return nil
}

func (m *MemoryStore) sweepLocked(now time.Time) {
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
	if len(m.entries) <= memoryStoreMaxEntries {
		return
	}
	// Over budget even after expiry sweep: drop the soonest-to-expire.
	type pair struct {
		key       string
		expiresAt time.Time
	}
	items := make([]pair, 0, len(m.entries))
	for key, entry := range m.entries {
		items = append(items, pair{key: key, expiresAt: entry.expiresAt})
	}
	for len(m.entries) > memoryStoreMaxEntries {
		oldest := 0
		for i := range items {
			if items[i].expiresAt.Before(items[oldest].expiresAt) {
				oldest = i
			}
		}
		delete(m.entries, items[oldest].key)
		items = append(items[:oldest], items[oldest+1:]...)
	}
}
