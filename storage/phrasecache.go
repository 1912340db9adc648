// PhraseCache implementation with durable persistence.
//
// Architecture:
// - In-memory: radix Trie holding phrase -> record, the source for every read
// - PhraseStore: durable copy, loaded once at startup, written on every mutation
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/richinex/lexiread/internal/dsa"
	"github.com/richinex/lexiread/model"
)

// ErrUncacheable is returned when a record kind must never be stored.
var ErrUncacheable = errors.New("storage: record kind is not cacheable")

// PhraseCache maps analysed phrases to their records.
//
// Lookups are exact and case-sensitive on the key as stored; case-insensitive
// matching against document text belongs to the overlay scanner. Put is
// last-write-wins with no staleness detection. Generation increases on every
// mutation so readers can tell when a derived view is out of date.
type PhraseCache struct {
	// writeMu serializes mutations so memory and store see the same order.
	writeMu sync.Mutex

	mu         sync.RWMutex
	index      *dsa.Trie[model.Record]
	generation uint64

	// store is optional; nil means memory-only.
	store PhraseStore
}

// NewPhraseCache loads every entry from store and returns a cache that
// flushes each mutation back to it.
//
// Ownership: the cache takes ownership of store; Close closes it. If
// NewPhraseCache fails the caller still owns store.
func NewPhraseCache(ctx context.Context, store PhraseStore) (*PhraseCache, error) {
	cache := NewInMemoryPhraseCache()
	cache.store = store

	if store == nil {
		return cache, nil
	}

	entries, err := store.LoadPhrases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load phrases: %w", err)
	}
	for _, e := range entries {
		cache.index.Insert(e.Key, e.Record)
	}
	return cache, nil
}

// NewInMemoryPhraseCache creates a cache without persistence.
func NewInMemoryPhraseCache() *PhraseCache {
	return &PhraseCache{index: dsa.NewTrie[model.Record]()}
}

// Get returns the record stored under exactly key.
func (c *PhraseCache) Get(key string) (model.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Get(key)
}

// Put stores record under key, replacing any previous record wholesale.
// Memory is updated first; a flush failure is returned but the entry stays
// readable for the rest of the process.
func (c *PhraseCache) Put(ctx context.Context, key string, record model.Record) error {
	if key == "" {
		return ErrEmptyKey
	}
	if record.Kind == model.KindError || record.Kind == model.KindFullText {
		return fmt.Errorf("%w: %s", ErrUncacheable, record.Kind)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	c.index.Insert(key, record)
	c.generation++
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.StorePhrase(ctx, key, record); err != nil {
			return fmt.Errorf("failed to persist phrase: %w", err)
		}
	}
	return nil
}

// Delete removes key. Only user-facing delete actions call this; the
// analysis pipeline never removes entries. Returns whether the key existed.
func (c *PhraseCache) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	existed := c.index.Delete(key)
	if existed {
		c.generation++
	}
	c.mu.Unlock()

	if existed && c.store != nil {
		if err := c.store.DeletePhrase(ctx, key); err != nil {
			return true, fmt.Errorf("failed to delete persisted phrase: %w", err)
		}
	}
	return existed, nil
}

// Keys returns every cached phrase in lexicographic order.
func (c *PhraseCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Keys()
}

// WithPrefix returns the cached phrases starting with prefix.
func (c *PhraseCache) WithPrefix(prefix string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.WithPrefix(prefix)
}

// Len returns the number of cached phrases.
func (c *PhraseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Len()
}

// Generation returns the mutation counter.
func (c *PhraseCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Snapshot returns a consistent copy of keys and records together with the
// generation they belong to.
func (c *PhraseCache) Snapshot() (map[string]model.Record, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]model.Record, c.index.Len())
	c.index.ForEach(func(k string, r model.Record) {
		out[k] = r
	})
	return out, c.generation
}

// Close closes the underlying store.
func (c *PhraseCache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
