// Package storage provides in-memory phrase storage.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/richinex/lexiread/model"
)

// InMemoryStorage implements PhraseStore using an in-memory map.
// Data is lost when process terminates.
type InMemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]PhraseEntry
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		entries: make(map[string]PhraseEntry),
	}
}

// LoadPhrases returns every entry ordered by key.
func (s *InMemoryStorage) LoadPhrases(_ context.Context) ([]PhraseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]PhraseEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// StorePhrase inserts or replaces the record for key.
func (s *InMemoryStorage) StorePhrase(_ context.Context, key string, record model.Record) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = PhraseEntry{Key: key, Record: record, UpdatedAt: time.Now()}
	return nil
}

// DeletePhrase removes key.
func (s *InMemoryStorage) DeletePhrase(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Close is a no-op.
func (s *InMemoryStorage) Close() error {
	return nil
}

// Verify InMemoryStorage implements PhraseStore
var _ PhraseStore = (*InMemoryStorage)(nil)
