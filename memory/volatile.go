package memory

import (
	"context"
	"slices"
	"sync"
	"time"
)

// VolatileStore is a process local DataStore. Records are lost when the
// process exits. It is safe for concurrent access; returned records are
// copies.
type VolatileStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record // collection -> key -> record
}

// NewVolatileStore creates an empty VolatileStore.
func NewVolatileStore() *VolatileStore {
	return &VolatileStore{collections: make(map[string]map[string]Record)}
}

// CreateCollection implements DataStore. Creating an existing collection is
// a no-op.
func (s *VolatileStore) CreateCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = make(map[string]Record)
	}
	return nil
}

// DeleteCollection implements DataStore.
func (s *VolatileStore) DeleteCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// Collections implements DataStore. Names are sorted.
func (s *VolatileStore) Collections(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Upsert implements DataStore. The collection is created on demand.
func (s *VolatileStore) Upsert(_ context.Context, collection string, record Record) (string, error) {
	if record.Key == "" {
		record.Key = record.Metadata.ID
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	record.Embedding = slices.Clone(record.Embedding)

	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.collections[collection]
	if !ok {
		recs = make(map[string]Record)
		s.collections[collection] = recs
	}
	recs[record.Key] = record
	return record.Key, nil
}

// Get implements DataStore.
func (s *VolatileStore) Get(_ context.Context, collection, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	r, ok := recs[key]
	if !ok {
		return nil, nil
	}
	r.Embedding = slices.Clone(r.Embedding)
	return &r, nil
}

// Remove implements DataStore.
func (s *VolatileStore) Remove(_ context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.collections[collection]
	if !ok {
		return ErrCollectionNotFound
	}
	delete(recs, key)
	return nil
}

// Nearest implements DataStore with a linear cosine scan.
func (s *VolatileStore) Nearest(_ context.Context, collection string, embedding []float32, limit int, minScore float64) ([]ScoredRecord, error) {
	s.mu.RLock()
	recs, ok := s.collections[collection]
	if !ok {
		s.mu.RUnlock()
		return nil, nil
	}
	all := make([]Record, 0, len(recs))
	for _, r := range recs {
		all = append(all, r)
	}
	s.mu.RUnlock()

	return RankNearest(all, embedding, limit, minScore), nil
}
