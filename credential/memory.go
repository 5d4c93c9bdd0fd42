package credential

import (
	"context"
	"sync"
)

// MemoryStore keeps the record in process memory. It is intended for tests and
// short-lived tools.
type MemoryStore struct {
	mu  sync.RWMutex
	rec *Record
}

// NewMemoryStore returns a store seeded with initial, which may be nil.
func NewMemoryStore(initial *Record) *MemoryStore {
	s := &MemoryStore{}
	if initial != nil {
		cp := *initial
		s.rec = &cp
	}
	return s
}

// Get returns a copy of the stored record or [ErrNotFound].
func (s *MemoryStore) Get(ctx context.Context) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec == nil {
		return nil, ErrNotFound
	}
	cp := *s.rec
	return &cp, nil
}

func (s *MemoryStore) Set(ctx context.Context, rec Record) error {
	s.mu.Lock()
	s.rec = &rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context) error {
	s.mu.Lock()
	s.rec = nil
	s.mu.Unlock()
	return nil
}
