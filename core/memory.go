package core

import "context"

// MemoryQueryResult is a single record returned by a SemanticMemory lookup.
type MemoryQueryResult struct {
	IsReference        bool    `json:"isReference"`
	ExternalSourceName string  `json:"externalSourceName,omitempty"`
	ID                 string  `json:"id"`
	Description        string  `json:"description,omitempty"`
	Text               string  `json:"text"`
	Relevance          float64 `json:"relevance"`
}

// SemanticMemory stores text alongside its embedding and retrieves it by
// meaning. Functions reach it through Context.Memory.
type SemanticMemory interface {
	SaveInformation(ctx context.Context, collection, text, id, description string) error
	SaveReference(ctx context.Context, collection, text, externalID, externalSourceName, description string) error
	Get(ctx context.Context, collection, key string) (*MemoryQueryResult, error)
	Search(ctx context.Context, collection, query string, limit int, minRelevance float64) ([]MemoryQueryResult, error)
	Collections(ctx context.Context) ([]string, error)
}

// NullMemory is a SemanticMemory that stores nothing and finds nothing.
type NullMemory struct{}

func (NullMemory) SaveInformation(context.Context, string, string, string, string) error { return nil }

func (NullMemory) SaveReference(context.Context, string, string, string, string, string) error {
	return nil
}

func (NullMemory) Get(context.Context, string, string) (*MemoryQueryResult, error) { return nil, nil }

func (NullMemory) Search(context.Context, string, string, int, float64) ([]MemoryQueryResult, error) {
	return nil, nil
}

func (NullMemory) Collections(context.Context) ([]string, error) { return nil, nil }
