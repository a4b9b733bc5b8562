package qdrant

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/skillmesh/memory"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
)

var _ memory.DataStore = (*Store)(nil)

func TestPointID(t *testing.T) {
	id := PointID("my-key")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, PointID("my-key"))
	assert.NotEqual(t, id, PointID("other-key"))

	u := uuid.NewString()
	assert.Equal(t, u, PointID(u))
}

func TestPayloadRoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in := memory.Record{
		Key: "k",
		Metadata: memory.Metadata{
			IsReference:        true,
			ExternalSourceName: "GitHub",
			ID:                 "https://example.com",
			Description:        "repo",
			Text:               "",
		},
		Timestamp: ts,
	}

	out := fromPayload(toPayload(in))
	assert.Equal(t, in, out)
}

func TestFromPayload_Missing(t *testing.T) {
	rec := fromPayload(map[string]*pb.Value{})
	assert.Equal(t, memory.Record{}, rec)
}
