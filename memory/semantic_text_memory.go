package memory

import (
	"context"
	"fmt"

	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/logging"
	"github.com/hupe1980/skillmesh/model"
)

// SemanticTextMemory stores text by meaning: every saved text is embedded
// and kept in a DataStore, and searches embed the query first.
type SemanticTextMemory struct {
	store    DataStore
	embedder model.Embedding
	logger   logging.Logger
}

// NewSemanticTextMemory wires a store and an embedding backend.
func NewSemanticTextMemory(store DataStore, embedder model.Embedding, logger logging.Logger) *SemanticTextMemory {
	return &SemanticTextMemory{store: store, embedder: embedder, logger: logging.OrNoOp(logger)}
}

func (m *SemanticTextMemory) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, model.NewError(model.CodeInvalidResponse, fmt.Sprintf("expected 1 embedding, got %d", len(vecs)), nil)
	}
	return vecs[0], nil
}

func (m *SemanticTextMemory) save(ctx context.Context, collection, embedText string, md Metadata) error {
	vec, err := m.embedOne(ctx, embedText)
	if err != nil {
		return err
	}
	if err := m.store.CreateCollection(ctx, collection); err != nil {
		return err
	}
	key, err := m.store.Upsert(ctx, collection, Record{Key: md.ID, Metadata: md, Embedding: vec})
	if err != nil {
		return err
	}
	m.logger.Debug("memory.record.saved", "collection", collection, "key", key, "reference", md.IsReference)
	return nil
}

// SaveInformation implements core.SemanticMemory.
func (m *SemanticTextMemory) SaveInformation(ctx context.Context, collection, text, id, description string) error {
	return m.save(ctx, collection, text, Metadata{ID: id, Text: text, Description: description})
}

// SaveReference implements core.SemanticMemory. Only the pointer to the
// external source is stored; text is used for the embedding.
func (m *SemanticTextMemory) SaveReference(ctx context.Context, collection, text, externalID, externalSourceName, description string) error {
	return m.save(ctx, collection, text, Metadata{
		IsReference:        true,
		ExternalSourceName: externalSourceName,
		ID:                 externalID,
		Description:        description,
	})
}

// Get implements core.SemanticMemory.
func (m *SemanticTextMemory) Get(ctx context.Context, collection, key string) (*core.MemoryQueryResult, error) {
	rec, err := m.store.Get(ctx, collection, key)
	if err != nil || rec == nil {
		return nil, err
	}
	res := toQueryResult(rec.Metadata, 1)
	return &res, nil
}

// Search implements core.SemanticMemory.
func (m *SemanticTextMemory) Search(ctx context.Context, collection, query string, limit int, minRelevance float64) ([]core.MemoryQueryResult, error) {
	vec, err := m.embedOne(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := m.store.Nearest(ctx, collection, vec, limit, minRelevance)
	if err != nil {
		return nil, err
	}
	out := make([]core.MemoryQueryResult, len(hits))
	for i, h := range hits {
		out[i] = toQueryResult(h.Metadata, h.Score)
	}
	return out, nil
}

// Collections implements core.SemanticMemory.
func (m *SemanticTextMemory) Collections(ctx context.Context) ([]string, error) {
	return m.store.Collections(ctx)
}

func toQueryResult(md Metadata, relevance float64) core.MemoryQueryResult {
	return core.MemoryQueryResult{
		IsReference:        md.IsReference,
		ExternalSourceName: md.ExternalSourceName,
		ID:                 md.ID,
		Description:        md.Description,
		Text:               md.Text,
		Relevance:          relevance,
	}
}
