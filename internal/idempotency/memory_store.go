package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/uni-registrar-api/pkg/clock"
)

type memoryEntry struct {
	result    *StoredResult
	pending   bool
	expiresAt time.Time
}

// MemoryStore is an in-process Store for tests and single-node
// deployments. Expired entries are filtered at read time and evicted
// lazily on the next write.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     clock.Clock
}

// NewMemoryStore constructs a MemoryStore with the given time source.
func NewMemoryStore(now clock.Clock) *MemoryStore {
	if now == nil {
		now = clock.System()
	}
	return &MemoryStore{entries: make(map[string]*memoryEntry), now: now}
}

// Get returns the finished result stored under key, if any.
func (s *MemoryStore) Get(_ context.Context, key string) (*StoredResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(key)
	if entry == nil || entry.pending {
		return nil, nil
	}
	return entry.result, nil
}

// Reserve claims key under the store lock, making insert-if-absent atomic.
func (s *MemoryStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, *StoredResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry := s.live(key); entry != nil {
		if entry.pending {
			return false, nil, ErrInFlight
		}
		return false, entry.result, nil
	}

	s.entries[key] = &memoryEntry{pending: true, expiresAt: s.now().Add(ttl)}
	return true, nil, nil
}

// Save records the result for a reserved key.
func (s *MemoryStore) Save(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[key] = &memoryEntry{
		result:    &StoredResult{Payload: payload, CreatedAt: now},
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Release drops a pending reservation, keeping finished results intact.
func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok && entry.pending {
		delete(s.entries, key)
	}
	return nil
}

// live returns the unexpired entry for key, evicting a stale one.
func (s *MemoryStore) live(key string) *memoryEntry {
	entry, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return entry
}
