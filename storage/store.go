// Package storage provides persistence for analysed phrases.
//
// PhraseStore is the durable collaborator behind PhraseCache: the cache loads
// every entry from it at startup and flushes each mutation back to it.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/richinex/lexiread/model"
)

// ErrEmptyKey is returned when storing or deleting the empty phrase.
var ErrEmptyKey = errors.New("storage: empty phrase key")

// PhraseEntry is one persisted phrase and its analysis.
type PhraseEntry struct {
	Key       string
	Record    model.Record
	UpdatedAt time.Time
}

// PhraseStore persists phrase records.
type PhraseStore interface {
	// LoadPhrases returns every stored entry.
	LoadPhrases(ctx context.Context) ([]PhraseEntry, error)

	// StorePhrase inserts or replaces the record for key.
	StorePhrase(ctx context.Context, key string, record model.Record) error

	// DeletePhrase removes key. Deleting a missing key is not an error.
	DeletePhrase(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}
