package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local TTL cache. Expired entries are dropped lazily on
// read and swept whenever the map grows past maxEntries.
type Memory struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

const defaultMaxEntries = 10000

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:        ttl,
		maxEntries: defaultMaxEntries,
		now:        time.Now,
		entries:    make(map[string]memoryEntry),
	}
}

func (cache *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	entry, ok := cache.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !cache.now().Before(entry.expiresAt) {
		delete(cache.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (cache *Memory) Set(_ context.Context, key string, value []byte) error {
	if cache.ttl <= 0 {
		return nil
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	now := cache.now()
	if len(cache.entries) >= cache.maxEntries {
		cache.sweep(now)
	}
	cache.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(cache.ttl),
	}
	return nil
}

func (cache *Memory) Delete(_ context.Context, key string) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.entries, key)
	return nil
}

func (cache *Memory) Len() int {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return len(cache.entries)
}

func (cache *Memory) sweep(now time.Time) {
	for key, entry := range cache.entries {
		if !now.Before(entry.expiresAt) {
			delete(cache.entries, key)
		}
	}
	if len(cache.entries) >= cache.maxEntries {
		cache.entries = make(map[string]memoryEntry)
	}
}
