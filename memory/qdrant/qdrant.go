// Package qdrant implements memory.DataStore on top of a Qdrant server
// reached over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/skillmesh/memory"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Payload field names.
const (
	fieldKey         = "key"
	fieldID          = "id"
	fieldText        = "text"
	fieldDescription = "description"
	fieldSource      = "external_source_name"
	fieldReference   = "is_reference"
	fieldTimestamp   = "timestamp"
)

// Options configure a Store.
type Options struct {
	// VectorSize is used when a collection is created explicitly through
	// CreateCollection. Collections created by Upsert use the size of the
	// first embedding.
	VectorSize uint64
}

// Store is a Qdrant backed memory.DataStore. Record keys are mapped to
// deterministic UUID point ids; the original key travels in the payload.
type Store struct {
	points      pb.PointsClient
	collections pb.CollectionsClient
	conn        *grpc.ClientConn
	opts        Options
}

// New dials addr (host:port of the gRPC endpoint) without TLS.
func New(addr string, optFns ...func(o *Options)) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant: did not connect: %w", err)
	}
	s := NewFromConn(conn, optFns...)
	s.conn = conn
	return s, nil
}

// NewFromConn creates a Store using an existing connection.
func NewFromConn(conn grpc.ClientConnInterface, optFns ...func(o *Options)) *Store {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		opts:        opts,
	}
}

// Close releases the connection opened by New.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Store) exists(ctx context.Context, collection string) (bool, error) {
	resp, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: collection})
	if err != nil {
		return false, fmt.Errorf("qdrant: collection exists: %w", err)
	}
	return resp.GetResult().GetExists(), nil
}

func (s *Store) create(ctx context.Context, collection string, size uint64) error {
	ok, err := s.exists(ctx, collection)
	if err != nil || ok {
		return err
	}
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     size,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection: %w", err)
	}
	return nil
}

// CreateCollection implements memory.DataStore. Without a configured
// VectorSize creation is deferred to the first Upsert.
func (s *Store) CreateCollection(ctx context.Context, collection string) error {
	if s.opts.VectorSize == 0 {
		return nil
	}
	return s.create(ctx, collection, s.opts.VectorSize)
}

// DeleteCollection implements memory.DataStore.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: collection}); err != nil {
		return fmt.Errorf("qdrant: failed to delete collection: %w", err)
	}
	return nil
}

// Collections implements memory.DataStore.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	resp, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to list collections: %w", err)
	}
	names := make([]string, 0, len(resp.GetCollections()))
	for _, c := range resp.GetCollections() {
		names = append(names, c.GetName())
	}
	return names, nil
}

// PointID maps a record key to the UUID used as Qdrant point id.
func PointID(key string) string {
	if _, err := uuid.Parse(key); err == nil {
		return strings.ToLower(key)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// Upsert implements memory.DataStore.
func (s *Store) Upsert(ctx context.Context, collection string, record memory.Record) (string, error) {
	if record.Key == "" {
		record.Key = record.Metadata.ID
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if err := s.create(ctx, collection, uint64(len(record.Embedding))); err != nil {
		return "", err
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id:      pb.NewID(PointID(record.Key)),
			Vectors: pb.NewVectors(record.Embedding...),
			Payload: toPayload(record),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("qdrant: failed to upsert point: %w", err)
	}
	return record.Key, nil
}

// Get implements memory.DataStore.
func (s *Store) Get(ctx context.Context, collection, key string) (*memory.Record, error) {
	resp, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: collection,
		Ids:            []*pb.PointId{pb.NewID(PointID(key))},
		WithPayload:    pb.NewWithPayload(true),
		WithVectors:    pb.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to get point: %w", err)
	}
	if len(resp.GetResult()) == 0 {
		return nil, nil
	}
	p := resp.GetResult()[0]
	rec := fromPayload(p.GetPayload())
	rec.Embedding = denseVector(p.GetVectors().GetVector())
	return &rec, nil
}

// Remove implements memory.DataStore.
func (s *Store) Remove(ctx context.Context, collection, key string) error {
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: collection,
		Points:         pb.NewPointsSelector(pb.NewID(PointID(key))),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to delete point: %w", err)
	}
	return nil
}

// Nearest implements memory.DataStore using Qdrant's cosine search.
func (s *Store) Nearest(ctx context.Context, collection string, embedding []float32, limit int, minScore float64) ([]memory.ScoredRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	threshold := float32(minScore)
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         embedding,
		Limit:          uint64(limit),
		ScoreThreshold: &threshold,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to search points: %w", err)
	}

	out := make([]memory.ScoredRecord, len(resp.GetResult()))
	for i, p := range resp.GetResult() {
		out[i] = memory.ScoredRecord{Record: fromPayload(p.GetPayload()), Score: float64(p.GetScore())}
	}
	return out, nil
}

// denseVector reads a dense vector from either the current or the legacy
// response field.
func denseVector(v *pb.VectorOutput) []float32 {
	if d := v.GetDense(); d != nil {
		return d.GetData()
	}
	return v.GetData() //nolint:staticcheck
}

func toPayload(r memory.Record) map[string]*pb.Value {
	return map[string]*pb.Value{
		fieldKey:         pb.NewValueString(r.Key),
		fieldID:          pb.NewValueString(r.Metadata.ID),
		fieldText:        pb.NewValueString(r.Metadata.Text),
		fieldDescription: pb.NewValueString(r.Metadata.Description),
		fieldSource:      pb.NewValueString(r.Metadata.ExternalSourceName),
		fieldReference:   pb.NewValueBool(r.Metadata.IsReference),
		fieldTimestamp:   pb.NewValueString(r.Timestamp.Format(time.RFC3339Nano)),
	}
}

func fromPayload(p map[string]*pb.Value) memory.Record {
	rec := memory.Record{
		Key: p[fieldKey].GetStringValue(),
		Metadata: memory.Metadata{
			ID:                 p[fieldID].GetStringValue(),
			Text:               p[fieldText].GetStringValue(),
			Description:        p[fieldDescription].GetStringValue(),
			ExternalSourceName: p[fieldSource].GetStringValue(),
			IsReference:        p[fieldReference].GetBoolValue(),
		},
	}
	if ts, err := time.Parse(time.RFC3339Nano, p[fieldTimestamp].GetStringValue()); err == nil {
		rec.Timestamp = ts
	}
	return rec
}
