package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/richinex/lexiread/model"
)

// runStoreContract exercises the behaviour every PhraseStore must share.
func runStoreContract(t *testing.T, store PhraseStore) {
	t.Helper()
	ctx := context.Background()

	word := model.Record{Kind: model.KindWord, Original: "hello world", ContextMeaning: "你好世界"}
	if err := store.StorePhrase(ctx, "hello world", word); err != nil {
		t.Fatalf("StorePhrase failed: %v", err)
	}
	grammar := model.Record{Kind: model.KindGrammar, MainStructure: "主干"}
	if err := store.StorePhrase(ctx, "A long sentence.", grammar); err != nil {
		t.Fatalf("StorePhrase failed: %v", err)
	}

	entries, err := store.LoadPhrases(ctx)
	if err != nil {
		t.Fatalf("LoadPhrases failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Key != "A long sentence." || entries[1].Key != "hello world" {
		t.Errorf("unexpected key order: %q, %q", entries[0].Key, entries[1].Key)
	}
	if entries[1].Record.ContextMeaning != "你好世界" {
		t.Errorf("expected context meaning to round-trip, got %q", entries[1].Record.ContextMeaning)
	}

	// Re-analysis replaces the record wholesale.
	replaced := model.Record{Kind: model.KindEntity, Explanation: "一个问候"}
	if err := store.StorePhrase(ctx, "hello world", replaced); err != nil {
		t.Fatalf("StorePhrase failed: %v", err)
	}
	entries, err = store.LoadPhrases(ctx)
	if err != nil {
		t.Fatalf("LoadPhrases failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after replace, got %d", len(entries))
	}
	got := entries[1].Record
	if got.Kind != model.KindEntity || got.ContextMeaning != "" {
		t.Errorf("expected wholesale replacement, got %+v", got)
	}

	if err := store.DeletePhrase(ctx, "hello world"); err != nil {
		t.Fatalf("DeletePhrase failed: %v", err)
	}
	if err := store.DeletePhrase(ctx, "never stored"); err != nil {
		t.Fatalf("DeletePhrase of missing key failed: %v", err)
	}
	entries, err = store.LoadPhrases(ctx)
	if err != nil {
		t.Fatalf("LoadPhrases failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry after delete, got %d", len(entries))
	}

	if err := store.StorePhrase(ctx, "", word); err != ErrEmptyKey {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
}

func TestSqliteStorageContract(t *testing.T) {
	storage, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	runStoreContract(t, storage)
}

func TestSqliteStoragePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "phrases.db")
	ctx := context.Background()

	storage, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	if err := storage.StorePhrase(ctx, "take off", model.Record{Kind: model.KindWord}); err != nil {
		t.Fatalf("StorePhrase failed: %v", err)
	}
	storage.Close()

	reopened, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	entries, err := reopened.LoadPhrases(ctx)
	if err != nil {
		t.Fatalf("LoadPhrases failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "take off" {
		t.Errorf("expected persisted phrase, got %+v", entries)
	}
	if entries[0].UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set")
	}
}
