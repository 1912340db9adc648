// Package dsa provides the key index behind the phrase cache.
// Uses go-radix for a compressed prefix tree (radix tree).
package dsa

import (
	"github.com/armon/go-radix"
)

// Trie wraps go-radix for a compressed prefix tree.
//
// Cached phrases share long prefixes ("in spite of", "in spite of the fact"),
// which the radix tree stores once. Walks visit keys in lexicographic order,
// so Keys and WithPrefix are deterministic.
//
// Time Complexity: O(k) per lookup where k is key length.
// Not safe for concurrent use; callers hold their own lock.
type Trie[V any] struct {
	tree *radix.Tree
}

// NewTrie creates a new empty radix tree.
func NewTrie[V any]() *Trie[V] {
	return &Trie[V]{tree: radix.New()}
}

// Insert adds or replaces a key. Returns true if the key already existed.
func (t *Trie[V]) Insert(key string, value V) bool {
	_, updated := t.tree.Insert(key, value)
	return updated
}

// Get looks up a key exactly (case-sensitive).
func (t *Trie[V]) Get(key string) (V, bool) {
	val, found := t.tree.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	if !ok {
		var zero V
		return zero, false
	}
	return v, true
}

// Delete removes a key. Returns true if the key was present.
func (t *Trie[V]) Delete(key string) bool {
	_, deleted := t.tree.Delete(key)
	return deleted
}

// Len returns the number of keys.
func (t *Trie[V]) Len() int {
	return t.tree.Len()
}

// WithPrefix returns every key starting with prefix, in lexicographic order.
func (t *Trie[V]) WithPrefix(prefix string) []string {
	keys := make([]string, 0)
	t.tree.WalkPrefix(prefix, func(k string, _ interface{}) bool {
		keys = append(keys, k)
		return false
	})
	return keys
}

// Keys returns all keys in lexicographic order.
func (t *Trie[V]) Keys() []string {
	return t.WithPrefix("")
}

// ForEach calls fn for each entry in key order.
func (t *Trie[V]) ForEach(fn func(key string, value V)) {
	t.tree.Walk(func(k string, v interface{}) bool {
		if val, ok := v.(V); ok {
			fn(k, val)
		}
		return false
	})
}
