// Package model provides domain types shared across packages.
package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Kind tags an analysis record with the variant it carries.
type Kind string

const (
	// KindWord is a word or short phrase analysis.
	KindWord Kind = "word"
	// KindGrammar is a sentence structure breakdown.
	KindGrammar Kind = "grammar"
	// KindEntity is an encyclopedic explanation of a proper noun.
	KindEntity Kind = "entity"
	// KindFullText is a whole-document summary. Never cached.
	KindFullText Kind = "fulltext"
	// KindError marks a failed analysis. Never cached.
	KindError Kind = "error"
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	return string(k)
}

// Known reports whether k is one of the kinds above.
func (k Kind) Known() bool {
	switch k {
	case KindWord, KindGrammar, KindEntity, KindFullText, KindError:
		return true
	default:
		return false
	}
}

// Example is an English sentence with its Chinese rendering.
type Example struct {
	EN Text `json:"en" yaml:"en"`
	CN Text `json:"cn" yaml:"cn"`
}

// Record is the structured analysis of one phrase.
//
// Only the fields of the record's Kind are populated:
//   - word:     Synonyms, ContextMeaning, OtherMeanings, Examples
//   - grammar:  MainStructure, InternalStructure, VisualStructure
//   - entity:   Explanation
//   - fulltext: CoreViewpoint, LogicFlow
//   - error:    Message, Reason
//
// Records are immutable once stored; re-analysing a phrase replaces the record.
type Record struct {
	Kind     Kind   `json:"type" yaml:"type"`
	Original string `json:"original,omitempty" yaml:"original,omitempty"`

	Synonyms       Text      `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	ContextMeaning Text      `json:"context_meaning,omitempty" yaml:"context_meaning,omitempty"`
	OtherMeanings  TextList  `json:"other_meanings,omitempty" yaml:"other_meanings,omitempty"`
	Examples       []Example `json:"examples,omitempty" yaml:"examples,omitempty"`

	MainStructure     Text `json:"main_structure,omitempty" yaml:"main_structure,omitempty"`
	InternalStructure Text `json:"internal_structure,omitempty" yaml:"internal_structure,omitempty"`
	VisualStructure   Text `json:"visual_structure,omitempty" yaml:"visual_structure,omitempty"`

	Explanation Text `json:"explanation,omitempty" yaml:"explanation,omitempty"`

	CoreViewpoint Text `json:"core_viewpoint,omitempty" yaml:"core_viewpoint,omitempty"`
	LogicFlow     Text `json:"logic_flow,omitempty" yaml:"logic_flow,omitempty"`

	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// IsError reports whether the record describes a failed analysis.
func (r Record) IsError() bool {
	return r.Kind == KindError
}

// ErrorRecord builds a failure record. reason is a short machine-readable tag.
func ErrorRecord(reason, message string) Record {
	return Record{Kind: KindError, Reason: reason, Message: message}
}

// Text is a string field that tolerates the shapes backends actually return:
// a JSON string, an array of strings (joined with ", "), null, or any other
// JSON value (kept as compact JSON text).
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}

	var parts []string
	if err := json.Unmarshal(data, &parts); err == nil {
		*t = Text(strings.Join(parts, ", "))
		return nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	*t = Text(compact.String())
	return nil
}

// String returns the plain text.
func (t Text) String() string {
	return string(t)
}

// TextList is a list of Text that also accepts a single string.
type TextList []Text

// UnmarshalJSON implements json.Unmarshaler.
func (l *TextList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] != '[' {
		var single Text
		if err := single.UnmarshalJSON(data); err != nil {
			return err
		}
		if single == "" {
			*l = nil
			return nil
		}
		*l = TextList{single}
		return nil
	}

	var items []Text
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// Selection is a span the reader highlighted, with its surrounding text.
type Selection struct {
	Text    string `json:"text" yaml:"text"`
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
	// Session groups selections from one reader so stale completions can be detected.
	Session string `json:"session,omitempty" yaml:"session,omitempty"`
}
