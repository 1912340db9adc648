// Package json provides best-effort decoding of JSON produced by language models.
//
// Backends asked for a JSON object usually return one, but sometimes wrap it
// in commentary or code fences. Decoding runs in two stages:
// 1. Strict parse of the whole text
// 2. Parse of the slice from the first '{' to the last '}' inclusive
//
// When both stages fail the caller gets "no result" rather than an error, so
// a malformed response degrades a single analysis instead of aborting it.
//
// Limitations:
// - Only JSON objects are recovered by the fallback, not arrays
// - Braces inside surrounding prose can defeat the slice
package json

import (
	"encoding/json"
	"strings"
)

// Decode parses text into a T using the two-stage strategy.
// The boolean is false when neither stage produced a value.
func Decode[T any](text string) (T, bool) {
	var result T
	if strings.TrimSpace(text) == "" {
		return result, false
	}

	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return result, true
	}

	fragment, ok := objectSlice(text)
	if !ok {
		var zero T
		return zero, false
	}

	var fallback T
	if err := json.Unmarshal([]byte(fragment), &fallback); err != nil {
		var zero T
		return zero, false
	}
	return fallback, true
}

// Extract returns the JSON portion of text: the whole text when it is valid
// JSON, otherwise the first-'{'-to-last-'}' slice when that is valid.
func Extract(text string) (string, bool) {
	if json.Valid([]byte(text)) {
		return text, true
	}
	fragment, ok := objectSlice(text)
	if !ok || !json.Valid([]byte(fragment)) {
		return "", false
	}
	return fragment, true
}

// objectSlice returns text[first '{' : last '}'+1].
func objectSlice(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(text, "}")
	if end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
