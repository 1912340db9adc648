package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/richinex/lexiread/model"
)

// DefaultRedisHash is the hash holding every phrase row.
const DefaultRedisHash = "lexiread:phrases"

// RedisStorage implements PhraseStore as one Redis hash: field = phrase,
// value = JSON row. A PhraseCache reads the hash only when it is created, so
// writes from another process show up after that process's cache reopens.
type RedisStorage struct {
	rdb  redis.UniversalClient
	hash string
}

// OpenRedis connects to a standalone Redis at addr and checks it answers.
func OpenRedis(ctx context.Context, addr string) (*RedisStorage, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisStorage(rdb, DefaultRedisHash), nil
}

// NewRedisStorage wraps an existing client. An empty hash uses DefaultRedisHash.
func NewRedisStorage(rdb redis.UniversalClient, hash string) *RedisStorage {
	if hash == "" {
		hash = DefaultRedisHash
	}
	return &RedisStorage{rdb: rdb, hash: hash}
}

// Close closes the client.
func (s *RedisStorage) Close() error {
	return s.rdb.Close()
}

// LoadPhrases returns every stored phrase in key order.
func (s *RedisStorage) LoadPhrases(ctx context.Context) ([]PhraseEntry, error) {
	rows, err := s.rdb.HGetAll(ctx, s.hash).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load phrases: %w", err)
	}

	entries := make([]PhraseEntry, 0, len(rows))
	for key, raw := range rows {
		var row boltRow
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, fmt.Errorf("failed to decode record for %q: %w", key, err)
		}
		entries = append(entries, PhraseEntry{
			Key:       key,
			Record:    row.Record,
			UpdatedAt: time.Unix(row.UpdatedAt, 0),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// StorePhrase inserts or replaces the record for key.
func (s *RedisStorage) StorePhrase(ctx context.Context, key string, record model.Record) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := json.Marshal(boltRow{Record: record, UpdatedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := s.rdb.HSet(ctx, s.hash, key, data).Err(); err != nil {
		return fmt.Errorf("failed to store phrase: %w", err)
	}
	return nil
}

// DeletePhrase removes key.
func (s *RedisStorage) DeletePhrase(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.rdb.HDel(ctx, s.hash, key).Err(); err != nil {
		return fmt.Errorf("failed to delete phrase: %w", err)
	}
	return nil
}

// Verify RedisStorage implements PhraseStore
var _ PhraseStore = (*RedisStorage)(nil)
