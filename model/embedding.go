package model

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// MockEmbedding is a deterministic Embedding for tests. Every lower-cased
// word is hashed into one of Dimensions buckets and the resulting count
// vector is L2 normalised, so texts sharing words are close in cosine
// space.
type MockEmbedding struct {
	Dimensions int
}

// DefaultMockDimensions keeps bucket collisions between unrelated short
// texts rare enough for ranking assertions.
const DefaultMockDimensions = 1024

// NewMockEmbedding creates a MockEmbedding with DefaultMockDimensions.
func NewMockEmbedding() *MockEmbedding { return &MockEmbedding{Dimensions: DefaultMockDimensions} }

// Embed implements Embedding.
func (m *MockEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dims := m.Dimensions
	if dims <= 0 {
		dims = DefaultMockDimensions
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, dims)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			vec[h.Sum32()%uint32(dims)]++
		}

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			n := float32(math.Sqrt(norm))
			for j := range vec {
				vec[j] /= n
			}
		}
		out[i] = vec
	}

	return out, nil
}

// Info implements Embedding.
func (m *MockEmbedding) Info() Info { return Info{Name: "bag-of-words", Provider: "mock"} }
