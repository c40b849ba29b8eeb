package challenge

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps challenges in process memory with lazy expiry.
//
// Correct only for single-instance deployments: a challenge issued by one
// instance is invisible to every other. Production clusters must use the
// datastore-backed store instead.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-process challenge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		clock:   time.Now,
	}
}

func key(purpose Purpose, voterID string) string {
	return string(purpose) + ":" + voterID
}

// Put stores value, overwriting any live challenge for the same key.
func (s *MemoryStore) Put(ctx context.Context, purpose Purpose, voterID string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries[key(purpose, voterID)] = memoryEntry{
		value:     stored,
		expiresAt: s.clock().Add(ttl),
	}
	return nil
}

// Get returns the live challenge or ErrNotFound, removing expired entries.
func (s *MemoryStore) Get(ctx context.Context, purpose Purpose, voterID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(purpose, voterID)
	entry, ok := s.entries[k]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.After(s.clock()) {
		delete(s.entries, k)
		return nil, ErrNotFound
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// Consume removes and returns the live challenge under one lock, so two
// racing verifies can never both observe it.
func (s *MemoryStore) Consume(ctx context.Context, purpose Purpose, voterID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(purpose, voterID)
	entry, ok := s.entries[k]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.entries, k)
	if !entry.expiresAt.After(s.clock()) {
		return nil, ErrNotFound
	}
	return entry.value, nil
}

// Delete removes the entry; deleting an absent entry is a no-op.
func (s *MemoryStore) Delete(ctx context.Context, purpose Purpose, voterID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key(purpose, voterID))
	return nil
}

var _ Store = (*MemoryStore)(nil)
