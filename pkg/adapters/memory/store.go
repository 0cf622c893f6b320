// Package memory provides an in-process RecordStore.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/sesame/pkg/domain"
)

// Store implements ports.RecordStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.RunRecord
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.RunRecord),
	}
}

// Save stores a copy of rec.
func (s *Store) Save(ctx context.Context, rec *domain.RunRecord) error {
	c := rec.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.ID] = c
	return nil
}

// Load returns a copy so callers cannot mutate the stored record.
func (s *Store) Load(ctx context.Context, id string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
