package credential

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	rec       Record
	expiresAt time.Time
}

// MemoryCache is an in-process Cache backed by a TTL map. Suitable for
// single-instance deployments and tests; multi-instance deployments should
// use the Postgres-backed cache so refreshes are shared.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, principal string) (Record, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[principal]
	if !ok {
		return Record{}, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, principal)
		return Record{}, false, nil
	}
	return entry.rec, true, nil
}

func (c *MemoryCache) Put(ctx context.Context, principal string, rec Record, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[principal] = memoryEntry{
		rec:       rec,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, principal string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, principal)
	return nil
}
