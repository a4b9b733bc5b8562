package memory

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrCollectionNotFound is returned by stores for operations on a missing
// collection.
var ErrCollectionNotFound = errors.New("memory: collection not found")

// Metadata describes the text behind an embedding.
type Metadata struct {
	IsReference        bool   `json:"is_reference"`
	ExternalSourceName string `json:"external_source_name,omitempty"`
	ID                 string `json:"id"`
	Description        string `json:"description,omitempty"`
	Text               string `json:"text,omitempty"`
}

// Record is one stored embedding. Key identifies the record inside its
// collection and defaults to Metadata.ID.
type Record struct {
	Key       string    `json:"key"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float32 `json:"embedding"`
	Timestamp time.Time `json:"timestamp"`
}

// ScoredRecord is a Record with its similarity to a query.
type ScoredRecord struct {
	Record
	Score float64
}

// DataStore persists records and finds the ones closest to an embedding.
// Get returns (nil, nil) for unknown keys.
type DataStore interface {
	CreateCollection(ctx context.Context, collection string) error
	DeleteCollection(ctx context.Context, collection string) error
	Collections(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, collection string, record Record) (string, error)
	Get(ctx context.Context, collection, key string) (*Record, error)
	Remove(ctx context.Context, collection, key string) error
	Nearest(ctx context.Context, collection string, embedding []float32, limit int, minScore float64) ([]ScoredRecord, error)
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// RankNearest scores records against embedding and keeps the best limit
// entries with a score >= minScore. Stores without server side search use
// it after loading a collection.
func RankNearest(records []Record, embedding []float32, limit int, minScore float64) []ScoredRecord {
	if limit <= 0 {
		return nil
	}
	top := NewTopN(limit)
	for _, r := range records {
		score := CosineSimilarity(embedding, r.Embedding)
		if score >= minScore {
			top.Push(ScoredRecord{Record: r, Score: score})
		}
	}
	return top.Sorted()
}
