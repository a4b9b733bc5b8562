// Package redis implements memory.DataStore on Redis. Every collection is
// a hash of JSON encoded records; a set tracks the collection names.
// Nearest-neighbour search ranks a collection in process.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/skillmesh/memory"
	goredis "github.com/redis/go-redis/v9"
)

// Config describes the Redis connection.
type Config struct {
	Address  string
	Password string
	DB       int
	// Prefix namespaces every key. Defaults to "skillmesh:memory".
	Prefix string
}

// Store is a Redis backed memory.DataStore.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewFromClient(client, cfg.Prefix), nil
}

// NewFromClient creates a Store using an existing client.
func NewFromClient(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "skillmesh:memory"
	}
	return &Store{client: client, prefix: prefix}
}

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) collectionsKey() string { return s.prefix + ":collections" }

func (s *Store) collectionKey(collection string) string {
	return s.prefix + ":collection:" + collection
}

// CreateCollection implements memory.DataStore.
func (s *Store) CreateCollection(ctx context.Context, collection string) error {
	return s.client.SAdd(ctx, s.collectionsKey(), collection).Err()
}

// DeleteCollection implements memory.DataStore.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.collectionKey(collection))
		pipe.SRem(ctx, s.collectionsKey(), collection)
		return nil
	})
	return err
}

// Collections implements memory.DataStore. Names are sorted.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.collectionsKey()).Result()
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// Upsert implements memory.DataStore.
func (s *Store) Upsert(ctx context.Context, collection string, record memory.Record) (string, error) {
	if record.Key == "" {
		record.Key = record.Metadata.ID
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	data, err := encode(record)
	if err != nil {
		return "", err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.SAdd(ctx, s.collectionsKey(), collection)
		pipe.HSet(ctx, s.collectionKey(collection), record.Key, data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return record.Key, nil
}

// Get implements memory.DataStore.
func (s *Store) Get(ctx context.Context, collection, key string) (*memory.Record, error) {
	data, err := s.client.HGet(ctx, s.collectionKey(collection), key).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec, err := decode(data)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Remove implements memory.DataStore.
func (s *Store) Remove(ctx context.Context, collection, key string) error {
	return s.client.HDel(ctx, s.collectionKey(collection), key).Err()
}

// Nearest implements memory.DataStore.
func (s *Store) Nearest(ctx context.Context, collection string, embedding []float32, limit int, minScore float64) ([]memory.ScoredRecord, error) {
	all, err := s.client.HGetAll(ctx, s.collectionKey(collection)).Result()
	if err != nil {
		return nil, err
	}
	records := make([]memory.Record, 0, len(all))
	for _, data := range all {
		rec, err := decode(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return memory.RankNearest(records, embedding, limit, minScore), nil
}

func encode(r memory.Record) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode memory record: %w", err)
	}
	return string(b), nil
}

func decode(data string) (memory.Record, error) {
	var r memory.Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return memory.Record{}, fmt.Errorf("decode memory record: %w", err)
	}
	return r, nil
}
