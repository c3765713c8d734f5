package handoff

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	rec       Record
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Entries past their retention window
// read as misses.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, envelopeID string, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[envelopeID] = memoryEntry{
		rec:       rec,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, envelopeID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[envelopeID]
	if !ok {
		return Record{}, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, envelopeID)
		return Record{}, false, nil
	}
	return entry.rec, true, nil
}
