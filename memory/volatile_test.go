package memory

import (
	"context"
	"sync"
	"testing"
)

// Interface compliance (compile-time assertions)
var _ DataStore = (*VolatileStore)(nil)

func TestVolatileStore_UpsertGetRemove(t *testing.T) {
	ctx := context.Background()
	s := NewVolatileStore()

	key, err := s.Upsert(ctx, "facts", Record{Metadata: Metadata{ID: "k1", Text: "sky is blue"}, Embedding: []float32{1, 0}})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if key != "k1" {
		t.Fatalf("expected key to default to metadata id, got %q", key)
	}

	rec, err := s.Get(ctx, "facts", "k1")
	if err != nil || rec == nil {
		t.Fatalf("expected record, got %v / %v", rec, err)
	}
	if rec.Metadata.Text != "sky is blue" || rec.Timestamp.IsZero() {
		t.Fatalf("unexpected record: %#v", rec)
	}

	// mutation safety (returned embedding is a copy)
	rec.Embedding[0] = 42
	again, _ := s.Get(ctx, "facts", "k1")
	if again.Embedding[0] != 1 {
		t.Fatalf("expected copy isolation, got %v", again.Embedding)
	}

	if err := s.Remove(ctx, "facts", "k1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if rec, _ := s.Get(ctx, "facts", "k1"); rec != nil {
		t.Fatalf("expected record to be gone, got %#v", rec)
	}
	if err := s.Remove(ctx, "missing", "k1"); err != ErrCollectionNotFound {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestVolatileStore_Collections(t *testing.T) {
	ctx := context.Background()
	s := NewVolatileStore()
	_ = s.CreateCollection(ctx, "b")
	_ = s.CreateCollection(ctx, "a")
	_ = s.CreateCollection(ctx, "a")

	names, _ := s.Collections(ctx)
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected collections: %v", names)
	}

	_ = s.DeleteCollection(ctx, "a")
	names, _ = s.Collections(ctx)
	if len(names) != 1 || names[0] != "b" {
		t.Fatalf("unexpected collections after delete: %v", names)
	}
}

func TestVolatileStore_Nearest(t *testing.T) {
	ctx := context.Background()
	s := NewVolatileStore()

	vectors := map[string][]float32{
		"x":  {1, 0, 0},
		"xy": {1, 1, 0},
		"y":  {0, 1, 0},
		"z":  {0, 0, 1},
	}
	for k, v := range vectors {
		if _, err := s.Upsert(ctx, "c", Record{Key: k, Metadata: Metadata{ID: k}, Embedding: v}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	hits, err := s.Nearest(ctx, "c", []float32{1, 0, 0}, 2, 0.5)
	if err != nil {
		t.Fatalf("nearest failed: %v", err)
	}
	if len(hits) != 2 || hits[0].Key != "x" || hits[1].Key != "xy" {
		t.Fatalf("unexpected ranking: %#v", hits)
	}
	if hits[0].Score < hits[1].Score {
		t.Fatalf("expected descending scores, got %v then %v", hits[0].Score, hits[1].Score)
	}

	none, _ := s.Nearest(ctx, "unknown", []float32{1, 0, 0}, 2, 0)
	if len(none) != 0 {
		t.Fatalf("expected no hits for unknown collection, got %d", len(none))
	}
}

func TestVolatileStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewVolatileStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.Upsert(ctx, "c", Record{Key: string(rune('a' + i)), Embedding: []float32{float32(i), 1}})
			_, _ = s.Nearest(ctx, "c", []float32{1, 1}, 3, 0)
		}(i)
	}
	wg.Wait()

	hits, _ := s.Nearest(ctx, "c", []float32{1, 1}, 100, -1)
	if len(hits) != 20 {
		t.Fatalf("expected 20 records, got %d", len(hits))
	}
}

func TestTopN(t *testing.T) {
	top := NewTopN(3)
	for i, score := range []float64{0.1, 0.9, 0.5, 0.3, 0.7} {
		top.Push(ScoredRecord{Record: Record{Key: string(rune('a' + i))}, Score: score})
	}
	got := top.Sorted()
	if len(got) != 3 || got[0].Score != 0.9 || got[1].Score != 0.7 || got[2].Score != 0.5 {
		t.Fatalf("unexpected top-n: %#v", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if s := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); s < 0.999 {
		t.Fatalf("expected ~1, got %v", s)
	}
	if s := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); s != 0 {
		t.Fatalf("expected 0, got %v", s)
	}
	if s := CosineSimilarity([]float32{1}, []float32{1, 0}); s != 0 {
		t.Fatalf("expected 0 for mismatched length, got %v", s)
	}
}
