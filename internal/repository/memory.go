package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryCounterStore is the process-local fallback used when Redis is
// unreachable. It does not coordinate across instances, which is why it
// is only ever the failover target, never the primary.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*counterEntry
}

type counterEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]*counterEntry)}
}

func (m *MemoryCounterStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	entry, ok := m.counters[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &counterEntry{count: 1, expiresAt: now.Add(window)}
		m.counters[key] = entry
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}
