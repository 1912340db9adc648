package analysis

import (
	"strings"

	"github.com/richinex/lexiread/model"
)

// Target is the analysis requested for a selection.
type Target string

const (
	// TargetWord asks for a word/phrase analysis; the backend may answer
	// with an entity record instead.
	TargetWord Target = "word"
	// TargetGrammar asks for a sentence structure breakdown.
	TargetGrammar Target = "grammar"
)

// sentenceTokenThreshold is the token count above which a selection is
// treated as a sentence.
const sentenceTokenThreshold = 5

// Classify picks the analysis for a selection: more than five
// whitespace-separated tokens, or any of . ! ?, means grammar.
func Classify(text string) Target {
	if len(strings.Fields(text)) > sentenceTokenThreshold || strings.ContainsAny(text, ".!?") {
		return TargetGrammar
	}
	return TargetWord
}

// Kind is the record kind assumed when the backend omits "type".
func (t Target) Kind() model.Kind {
	if t == TargetGrammar {
		return model.KindGrammar
	}
	return model.KindWord
}
