package storage

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/richinex/lexiread/model"
)

type failingStore struct {
	*InMemoryStorage
}

func (f failingStore) StorePhrase(context.Context, string, model.Record) error {
	return errors.New("disk full")
}

// stallingStore holds its first StorePhrase until release is closed.
type stallingStore struct {
	*InMemoryStorage
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *stallingStore) StorePhrase(ctx context.Context, key string, record model.Record) error {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.InMemoryStorage.StorePhrase(ctx, key, record)
}

func TestPhraseCacheLoadsAtStartup(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStorage()
	store.StorePhrase(ctx, "hello world", model.Record{Kind: model.KindWord})
	store.StorePhrase(ctx, "Hello", model.Record{Kind: model.KindEntity})

	cache, err := NewPhraseCache(ctx, store)
	if err != nil {
		t.Fatalf("NewPhraseCache failed: %v", err)
	}
	defer cache.Close()

	if cache.Len() != 2 {
		t.Fatalf("expected 2 phrases, got %d", cache.Len())
	}
	if _, ok := cache.Get("hello world"); !ok {
		t.Error("expected loaded phrase")
	}
	if _, ok := cache.Get("HELLO WORLD"); ok {
		t.Error("Get must be case-sensitive")
	}
	if cache.Generation() != 0 {
		t.Errorf("loading must not bump the generation, got %d", cache.Generation())
	}
}

func TestPhraseCachePutFlushesAndBumpsGeneration(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStorage()
	cache, err := NewPhraseCache(ctx, store)
	if err != nil {
		t.Fatalf("NewPhraseCache failed: %v", err)
	}

	if err := cache.Put(ctx, "take off", model.Record{Kind: model.KindWord, Synonyms: "起飞"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if cache.Generation() != 1 {
		t.Errorf("expected generation 1, got %d", cache.Generation())
	}

	entries, _ := store.LoadPhrases(ctx)
	if len(entries) != 1 || entries[0].Key != "take off" {
		t.Errorf("expected flush to store, got %+v", entries)
	}

	// Last write wins, no merge.
	cache.Put(ctx, "take off", model.Record{Kind: model.KindEntity, Explanation: "x"})
	got, _ := cache.Get("take off")
	if got.Kind != model.KindEntity || got.Synonyms != "" {
		t.Errorf("expected wholesale overwrite, got %+v", got)
	}
}

func TestPhraseCacheConcurrentPutsPersistLastWrite(t *testing.T) {
	ctx := context.Background()
	store := &stallingStore{
		InMemoryStorage: NewInMemoryStorage(),
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	cache, err := NewPhraseCache(ctx, store)
	if err != nil {
		t.Fatalf("NewPhraseCache failed: %v", err)
	}

	first := model.Record{Kind: model.KindWord, Synonyms: "first"}
	second := model.Record{Kind: model.KindWord, Synonyms: "second"}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cache.Put(ctx, "look up", first)
	}()
	<-store.entered
	go func() {
		defer wg.Done()
		cache.Put(ctx, "look up", second)
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	inMemory, _ := cache.Get("look up")
	entries, _ := store.LoadPhrases(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected one stored entry, got %+v", entries)
	}
	if !reflect.DeepEqual(inMemory, entries[0].Record) {
		t.Errorf("memory holds %q but store holds %q", inMemory.Synonyms, entries[0].Record.Synonyms)
	}

	reloaded, err := NewPhraseCache(ctx, store)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got, _ := reloaded.Get("look up"); got.Synonyms != inMemory.Synonyms {
		t.Errorf("reload returned %q, cache had %q", got.Synonyms, inMemory.Synonyms)
	}
}

func TestPhraseCacheRejectsUncacheableKinds(t *testing.T) {
	cache := NewInMemoryPhraseCache()
	ctx := context.Background()

	for _, kind := range []model.Kind{model.KindError, model.KindFullText} {
		err := cache.Put(ctx, "anything", model.Record{Kind: kind})
		if !errors.Is(err, ErrUncacheable) {
			t.Errorf("expected ErrUncacheable for %s, got %v", kind, err)
		}
	}
	if cache.Len() != 0 {
		t.Errorf("expected empty cache, got %d", cache.Len())
	}
	if err := cache.Put(ctx, "", model.Record{Kind: model.KindWord}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
}

func TestPhraseCacheFlushFailureKeepsMemoryEntry(t *testing.T) {
	ctx := context.Background()
	cache, err := NewPhraseCache(ctx, failingStore{NewInMemoryStorage()})
	if err != nil {
		t.Fatalf("NewPhraseCache failed: %v", err)
	}

	if err := cache.Put(ctx, "hello", model.Record{Kind: model.KindWord}); err == nil {
		t.Fatal("expected flush error")
	}
	if _, ok := cache.Get("hello"); !ok {
		t.Error("entry must remain readable after a flush failure")
	}
}

func TestPhraseCacheDeleteAndPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStorage()
	cache, _ := NewPhraseCache(ctx, store)

	for _, k := range []string{"in spite of", "in spite of the fact", "instead"} {
		cache.Put(ctx, k, model.Record{Kind: model.KindWord})
	}

	if got := cache.WithPrefix("in spite"); !reflect.DeepEqual(got, []string{"in spite of", "in spite of the fact"}) {
		t.Errorf("unexpected prefix result: %v", got)
	}

	existed, err := cache.Delete(ctx, "instead")
	if err != nil || !existed {
		t.Fatalf("expected delete to succeed, existed=%v err=%v", existed, err)
	}
	gen := cache.Generation()
	existed, err = cache.Delete(ctx, "instead")
	if err != nil || existed {
		t.Errorf("expected missing key, existed=%v err=%v", existed, err)
	}
	if cache.Generation() != gen {
		t.Error("deleting a missing key must not bump the generation")
	}

	entries, _ := store.LoadPhrases(ctx)
	if len(entries) != 2 {
		t.Errorf("expected delete to reach the store, got %d entries", len(entries))
	}
}

func TestPhraseCacheSnapshot(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryPhraseCache()
	cache.Put(ctx, "ab", model.Record{Kind: model.KindWord})
	cache.Put(ctx, "cd", model.Record{Kind: model.KindGrammar})

	records, gen := cache.Snapshot()
	if len(records) != 2 || gen != 2 {
		t.Errorf("unexpected snapshot: %d records at generation %d", len(records), gen)
	}
	if records["cd"].Kind != model.KindGrammar {
		t.Errorf("unexpected record: %+v", records["cd"])
	}
}
