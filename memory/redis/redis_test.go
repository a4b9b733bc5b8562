package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/skillmesh/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ memory.DataStore = (*Store)(nil)

func TestEncodeDecode(t *testing.T) {
	in := memory.Record{
		Key:       "k",
		Metadata:  memory.Metadata{ID: "k", Text: "hello", Description: "greeting"},
		Embedding: []float32{0.25, -1},
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := encode(in)
	require.NoError(t, err)

	out, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, in.Key, out.Key)
	assert.Equal(t, in.Metadata, out.Metadata)
	assert.Equal(t, in.Embedding, out.Embedding)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))

	_, err = decode("{")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	s := NewFromClient(nil, "")
	assert.Equal(t, "skillmesh:memory:collections", s.collectionsKey())
	assert.Equal(t, "skillmesh:memory:collection:notes", s.collectionKey("notes"))
}

// TestStore_Live runs against a real server when SKILLMESH_TEST_REDIS_ADDR
// is set.
func TestStore_Live(t *testing.T) {
	addr := os.Getenv("SKILLMESH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SKILLMESH_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	s, err := New(ctx, Config{Address: addr, Prefix: "skillmesh:test:" + time.Now().Format("150405.000")})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.DeleteCollection(ctx, "c")
		_ = s.Close()
	})

	_, err = s.Upsert(ctx, "c", memory.Record{Key: "x", Embedding: []float32{1, 0}})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "c", memory.Record{Key: "y", Embedding: []float32{0, 1}})
	require.NoError(t, err)

	hits, err := s.Nearest(ctx, "c", []float32{1, 0.1}, 1, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "x", hits[0].Key)

	names, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "c")
}
