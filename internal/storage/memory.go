package storage

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps fields in a map. It is used by tests and ephemeral runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data Fields
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(Fields)}
}

func (s *MemoryStore) Has(_ context.Context, field Field) (bool, error) {
	s.mu.RLock()
	ok := s.data.Has(field)
	s.mu.RUnlock()
	return ok, nil
}

func (s *MemoryStore) Get(_ context.Context, field Field) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Get(field)
}

func (s *MemoryStore) Load(ctx context.Context) (Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Fields(s.Snapshot()), nil
}

func (s *MemoryStore) Set(ctx context.Context, entries ...Entry) error {
	return s.Update(ctx, func(Fields) ([]Entry, error) {
		return entries, nil
	})
}

func (s *MemoryStore) Update(ctx context.Context, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(Fields, len(s.data))
	for k, v := range s.data {
		current[k] = v
	}
	entries, err := fn(current)
	if err != nil {
		return err
	}
	return s.data.Apply(entries...)
}

// Snapshot returns a copy of all fields.
func (s *MemoryStore) Snapshot() map[Field]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Field]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}
