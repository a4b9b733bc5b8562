// Package sqlite implements memory.DataStore on SQLite using the pure Go
// modernc.org/sqlite driver. Nearest-neighbour search loads the collection
// and ranks it in process, which suits collections of a few thousand
// records.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/hupe1980/skillmesh/memory"
	_ "modernc.org/sqlite"
)

// Store is a SQLite backed memory.DataStore.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn, e.g. "file:memory.db" or
// ":memory:", and ensures the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases alive and serialises
	// writers.
	db.SetMaxOpenConns(1)
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New creates a Store on an existing database and ensures the schema.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS memory_collections (
			name TEXT PRIMARY KEY
		);
		CREATE TABLE IF NOT EXISTS memory_records (
			collection TEXT NOT NULL,
			key TEXT NOT NULL,
			metadata_json TEXT NOT NULL,
			embedding_json TEXT NOT NULL,
			created_at TIMESTAMP,
			PRIMARY KEY (collection, key)
		);
	`)
	return err
}

// CreateCollection implements memory.DataStore.
func (s *Store) CreateCollection(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO memory_collections (name) VALUES (?)`, collection)
	return err
}

// DeleteCollection implements memory.DataStore.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_records WHERE collection = ?`, collection); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_collections WHERE name = ?`, collection); err != nil {
		return err
	}
	return tx.Commit()
}

// Collections implements memory.DataStore.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM memory_collections ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Upsert implements memory.DataStore. The collection is created on demand.
func (s *Store) Upsert(ctx context.Context, collection string, record memory.Record) (string, error) {
	if record.Key == "" {
		record.Key = record.Metadata.ID
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	md, err := json.Marshal(record.Metadata)
	if err != nil {
		return "", err
	}
	emb, err := json.Marshal(record.Embedding)
	if err != nil {
		return "", err
	}

	if err := s.CreateCollection(ctx, collection); err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_records (collection, key, metadata_json, embedding_json, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET
			metadata_json = excluded.metadata_json,
			embedding_json = excluded.embedding_json,
			created_at = excluded.created_at
	`, collection, record.Key, string(md), string(emb), record.Timestamp.UTC())
	if err != nil {
		return "", err
	}
	return record.Key, nil
}

// Get implements memory.DataStore.
func (s *Store) Get(ctx context.Context, collection, key string) (*memory.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, metadata_json, embedding_json, created_at
		FROM memory_records WHERE collection = ? AND key = ?
	`, collection, key)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Remove implements memory.DataStore.
func (s *Store) Remove(ctx context.Context, collection, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memory_records WHERE collection = ? AND key = ?`, collection, key)
	return err
}

// Nearest implements memory.DataStore.
func (s *Store) Nearest(ctx context.Context, collection string, embedding []float32, limit int, minScore float64) ([]memory.ScoredRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, metadata_json, embedding_json, created_at
		FROM memory_records WHERE collection = ?
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []memory.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return memory.RankNearest(records, embedding, limit, minScore), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (memory.Record, error) {
	var (
		rec     memory.Record
		mdJSON  string
		embJSON string
		created sql.NullTime
	)
	if err := row.Scan(&rec.Key, &mdJSON, &embJSON, &created); err != nil {
		return memory.Record{}, err
	}
	if err := json.Unmarshal([]byte(mdJSON), &rec.Metadata); err != nil {
		return memory.Record{}, err
	}
	if err := json.Unmarshal([]byte(embJSON), &rec.Embedding); err != nil {
		return memory.Record{}, err
	}
	if created.Valid {
		rec.Timestamp = created.Time
	}
	return rec, nil
}
