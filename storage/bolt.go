// Package storage provides bbolt phrase storage.
//
// A single bucket maps phrase bytes to a JSON row. bbolt keeps keys sorted,
// so LoadPhrases returns entries in byte order like the SQLite backend.

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/richinex/lexiread/model"
	"go.etcd.io/bbolt"
)

var bucketPhrases = []byte("phrases")

type boltRow struct {
	Record    model.Record `json:"record"`
	UpdatedAt int64        `json:"updated_at"`
}

// BoltStorage implements PhraseStore on a bbolt file.
type BoltStorage struct {
	db *bbolt.DB
}

// OpenBolt opens or creates a bbolt database at path.
func OpenBolt(path string) (*BoltStorage, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketPhrases); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketPhrases, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStorage{db: db}, nil
}

// Close closes the database file.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

// LoadPhrases returns every stored phrase.
func (s *BoltStorage) LoadPhrases(_ context.Context) ([]PhraseEntry, error) {
	entries := []PhraseEntry{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPhrases).ForEach(func(k, v []byte) error {
			var row boltRow
			if err := json.Unmarshal(v, &row); err != nil {
				return fmt.Errorf("failed to decode record for %q: %w", k, err)
			}
			entries = append(entries, PhraseEntry{
				Key:       string(k),
				Record:    row.Record,
				UpdatedAt: time.Unix(row.UpdatedAt, 0),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// StorePhrase inserts or replaces the record for key.
func (s *BoltStorage) StorePhrase(_ context.Context, key string, record model.Record) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := json.Marshal(boltRow{Record: record, UpdatedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPhrases).Put([]byte(key), data)
	})
}

// DeletePhrase removes key.
func (s *BoltStorage) DeletePhrase(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPhrases).Delete([]byte(key))
	})
}

// Verify BoltStorage implements PhraseStore
var _ PhraseStore = (*BoltStorage)(nil)
