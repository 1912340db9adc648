// Package storage provides SQLite phrase storage.
//
// Information Hiding:
// - SQLite connection management hidden behind PhraseStore
// - Schema details encapsulated
// - Records stored as JSON so new analysis fields need no migration

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/richinex/lexiread/model"
)

// SqliteStorage implements PhraseStore using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStorage struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS phrases (
			phrase TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			record TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_phrases_kind
		ON phrases(kind);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// LoadPhrases returns every stored phrase ordered by phrase.
func (s *SqliteStorage) LoadPhrases(ctx context.Context) ([]PhraseEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT phrase, record, updated_at FROM phrases ORDER BY phrase ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query phrases: %w", err)
	}
	defer rows.Close()

	entries := []PhraseEntry{}
	for rows.Next() {
		var (
			key       string
			raw       string
			updatedAt int64
		)
		if err := rows.Scan(&key, &raw, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan phrase: %w", err)
		}

		var record model.Record
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("failed to decode record for %q: %w", key, err)
		}
		entries = append(entries, PhraseEntry{
			Key:       key,
			Record:    record,
			UpdatedAt: time.Unix(updatedAt, 0),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating phrases: %w", err)
	}

	return entries, nil
}

// StorePhrase inserts or replaces the record for key. created_at survives replacement.
func (s *SqliteStorage) StorePhrase(ctx context.Context, key string, record model.Record) error {
	if key == "" {
		return ErrEmptyKey
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO phrases (phrase, kind, record, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(phrase) DO UPDATE SET
			kind = excluded.kind,
			record = excluded.record,
			updated_at = excluded.updated_at`,
		key, record.Kind.String(), string(raw), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to store phrase: %w", err)
	}
	return nil
}

// DeletePhrase removes key.
func (s *SqliteStorage) DeletePhrase(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM phrases WHERE phrase = ?", key); err != nil {
		return fmt.Errorf("failed to delete phrase: %w", err)
	}
	return nil
}

// Verify SqliteStorage implements PhraseStore
var _ PhraseStore = (*SqliteStorage)(nil)
