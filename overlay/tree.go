package overlay

import (
	"strings"

	"github.com/richinex/lexiread/model"
)

// SegmentKind distinguishes plain text from highlighted text.
type SegmentKind string

const (
	SegmentPlain     SegmentKind = "plain"
	SegmentAnnotated SegmentKind = "annotated"
)

// Hint is a rendering treatment. It never affects tree structure.
type Hint string

const (
	HintPhrase   Hint = "phrase"
	HintSentence Hint = "sentence"
)

// sentenceTokens is the token count above which a key renders as a sentence.
const sentenceTokens = 3

// HintFor derives the hint from the whitespace-separated token count of key.
func HintFor(key string) Hint {
	if len(strings.Fields(key)) > sentenceTokens {
		return HintSentence
	}
	return HintPhrase
}

// Segment is one node of the overlay tree. Start and End are byte offsets
// into the document text. An annotated segment has Children only when other
// matches nest inside it; the children then cover its range exactly.
type Segment struct {
	Kind     SegmentKind   `json:"kind" yaml:"kind"`
	Start    int           `json:"start" yaml:"start"`
	End      int           `json:"end" yaml:"end"`
	Text     string        `json:"text" yaml:"text"`
	Key      string        `json:"key,omitempty" yaml:"key,omitempty"`
	Record   *model.Record `json:"record,omitempty" yaml:"record,omitempty"`
	Hint     Hint          `json:"hint,omitempty" yaml:"hint,omitempty"`
	Children []Segment     `json:"children,omitempty" yaml:"children,omitempty"`
}

// Build arranges matches over text[start:end] into contiguous segments.
//
// At each level the match with the smallest start wins, ties going to the
// larger end. Matches strictly inside a winner become its children; matches
// crossing a winner's boundary are dropped at that level, as is any second
// match covering exactly the winner's range.
func Build(text string, start, end int, matches []Match) []Segment {
	start = clamp(start, 0, len(text))
	end = clamp(end, start, len(text))

	within := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Start >= start && m.End <= end && m.End > m.Start {
			within = append(within, m)
		}
	}
	sortMatches(within)
	return build(text, start, end, within)
}

// build expects ms sorted and contained in [start, end).
func build(text string, start, end int, ms []Match) []Segment {
	var segments []Segment
	cursor := start
	i := 0
	for cursor < end {
		for i < len(ms) && ms[i].Start < cursor {
			i++
		}
		if i == len(ms) {
			segments = append(segments, plain(text, cursor, end))
			break
		}

		m := ms[i]
		if m.Start > cursor {
			segments = append(segments, plain(text, cursor, m.Start))
		}

		var inner []Match
		for j := i + 1; j < len(ms) && ms[j].Start < m.End; j++ {
			n := ms[j]
			if n.End > m.End || (n.Start == m.Start && n.End == m.End) {
				continue
			}
			inner = append(inner, n)
		}

		seg := annotated(text, m)
		if len(inner) > 0 {
			seg.Children = build(text, m.Start, m.End, inner)
		}
		segments = append(segments, seg)

		cursor = m.End
		i++
	}
	return segments
}

func plain(text string, start, end int) Segment {
	return Segment{Kind: SegmentPlain, Start: start, End: end, Text: text[start:end]}
}

func annotated(text string, m Match) Segment {
	record := m.Record
	return Segment{
		Kind:   SegmentAnnotated,
		Start:  m.Start,
		End:    m.End,
		Text:   text[m.Start:m.End],
		Key:    m.Key,
		Record: &record,
		Hint:   HintFor(m.Key),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Flatten concatenates the text of top-level segments.
func Flatten(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}
