// Package overlay locates cached phrases in document text and arranges the
// hits into a nested segment tree for highlighting.
package overlay

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/richinex/lexiread/model"
)

// MinKeyLength is the shortest key, in characters, that can produce a Match.
const MinKeyLength = 2

// whitespaceClass covers ASCII whitespace plus Unicode separators such as
// U+00A0 and U+3000, which RE2's \s leaves out.
const whitespaceClass = `[\s\p{Z}\x{85}\x{FEFF}]`

var whitespaceRun = regexp.MustCompile(whitespaceClass + `+`)

// Match is one occurrence of a cached key in a text. Start and End are byte
// offsets into the scanned text, End exclusive.
type Match struct {
	Start  int
	End    int
	Key    string
	Text   string
	Record model.Record
}

// KeySource is the read side of the phrase cache.
type KeySource interface {
	Keys() []string
	Get(key string) (model.Record, bool)
}

// Records is a fixed KeySource, typically a cache snapshot.
type Records map[string]model.Record

// Keys returns the keys in lexicographic order.
func (r Records) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get looks up a key exactly.
func (r Records) Get(key string) (model.Record, bool) {
	rec, ok := r[key]
	return rec, ok
}

// Scanner finds cached keys in text. Compiled patterns are kept across
// scans. Safe for concurrent use.
type Scanner struct {
	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewScanner creates a scanner with an empty pattern cache.
func NewScanner() *Scanner {
	return &Scanner{patterns: make(map[string]*regexp.Regexp)}
}

// Scan is a one-off NewScanner().Scan.
func Scan(text string, src KeySource) []Match {
	return NewScanner().Scan(text, src)
}

// Scan returns every occurrence of every key of src in text.
//
// Matching is case-insensitive, and a whitespace run inside a key matches any
// whitespace run in the text. Each key contributes non-overlapping hits;
// hits of different keys may overlap or nest. The result is sorted by start
// ascending, end descending, then key.
func (s *Scanner) Scan(text string, src KeySource) []Match {
	if text == "" {
		return nil
	}

	keys := orderKeys(src.Keys())
	s.prune(keys)

	var matches []Match
	for _, key := range keys {
		record, ok := src.Get(key)
		if !ok {
			continue
		}
		for _, loc := range s.pattern(key).FindAllStringIndex(text, -1) {
			if loc[1] <= loc[0] {
				continue
			}
			matches = append(matches, Match{
				Start:  loc[0],
				End:    loc[1],
				Key:    key,
				Text:   text[loc[0]:loc[1]],
				Record: record,
			})
		}
	}

	sortMatches(matches)
	return matches
}

func (s *Scanner) pattern(key string) *regexp.Regexp {
	s.mu.Lock()
	defer s.mu.Unlock()
	if re, ok := s.patterns[key]; ok {
		return re
	}
	re := compileKey(key)
	s.patterns[key] = re
	return re
}

// prune drops compiled patterns for keys no longer in the source.
func (s *Scanner) prune(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.patterns) <= len(keys) {
		return
	}
	live := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		live[k] = struct{}{}
	}
	for k := range s.patterns {
		if _, ok := live[k]; !ok {
			delete(s.patterns, k)
		}
	}
}

// compileKey escapes key literally except for whitespace runs, which match
// any whitespace run. QuoteMeta output always compiles.
func compileKey(key string) *regexp.Regexp {
	parts := whitespaceRun.Split(key, -1)
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, whitespaceClass+`+`))
}

// orderKeys drops keys below MinKeyLength and orders the rest longest first,
// ties broken lexicographically.
func orderKeys(keys []string) []string {
	kept := make([]string, 0, len(keys))
	for _, k := range keys {
		if utf8.RuneCountInString(k) >= MinKeyLength {
			kept = append(kept, k)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(kept[i]), utf8.RuneCountInString(kept[j])
		if li != lj {
			return li > lj
		}
		return kept[i] < kept[j]
	})
	return kept
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End > b.End
		}
		return a.Key < b.Key
	})
}
