package analysis

import "fmt"

// System instructions sent with each request kind.
const (
	analystSystem = "Expert English Teacher JSON"
	tutorSystem   = "Expert tutor"
)

// fullTextLimit caps the document text embedded in a full-text prompt.
const fullTextLimit = 8000

const grammarTemplate = `
You are an English sentence analysis assistant for Chinese learners.
Your job is to break down long, difficult English sentences in a way that is clear, intuitive, and easy to understand (no grammar jargon).

Analyze the sentence: "%s"
Context: "%s"

Output JSON in this format (no extra text):
{
  "type": "grammar",
  "main_structure": "Chinese explanation of the core meaning. Identify the main clause. Use natural Chinese, not grammar terminology.",
  "internal_structure": "Break the sentence into smaller parts using bullet points. For each part: show the English fragment + give a simple Chinese explanation of what it does (e.g., 表示结果, 补充说明, 描述动作对象). Avoid grammar jargon.",
  "visual_structure": "Provide a tree-style hierarchical breakdown. Use only Chinese functional labels such as [主干], [补充], [说明], [结果], [动作对象]. Each level on a new line with indentation. Do not use grammar terms."
}

Rules:
- 中文必须作为解释语言；英文只用于呈现句子片段。
- Avoid terms like: non-restrictive clause, participle clause, adverbial modifier, gerund, etc.
- Use intuitive functional descriptions: "表示结果", "导致…", "补充说明", "进一步解释…".
- The visual structure must clearly show indentation and layers like:

[主干] ...
    [补充] ...
        [说明] ...

Do NOT use curly braces {} inside the JSON values. Bold key English terms.
`

const wordTemplate = `Analyze: "%s" Context: "%s".

If Proper Noun (Entity):
Return JSON: { "type": "entity", "explanation": "Encyclopedic explanation in Chinese." }

If General Word/Phrase:
Return JSON:
{
  "type": "word",
  "synonyms": "2-3 Chinese synonyms",
  "context_meaning": "The most natural, smooth Chinese translation of this text in the given context. Avoid stiff dictionary definitions.",
  "other_meanings": ["Chinese Meaning A", "Chinese Meaning B"],
  "examples": [
    { "en": "Rewrite the ORIGINAL sentence from context. Keep it concise (under 30 words). You may simplify or slightly alter the original meaning to make it a clear example.", "cn": "Natural Chinese translation" },
    { "en": "A new example sentence for the context meaning.", "cn": "Natural Chinese translation" },
    { "en": "Another new example sentence.", "cn": "Natural Chinese translation" }
  ]
}

Constraints:
1. "other_meanings": List 0 to 3 other COMMON meanings. Only list meanings that are significantly different from the "context_meaning". Do NOT list rare meanings. If no distinct common meanings exist, return an empty array.
2. Wrap the target word in **double asterisks** in all English examples.
`

const fullTextTemplate = `Analyze logic/viewpoints: %s... Output JSON: { "type": "fulltext", "core_viewpoint": "Chinese summary", "logic_flow": "Chinese logic breakdown" }`

const examplesTemplate = `Generate 3 examples for "%s" meaning "%s". JSON: { "examples": [ { "en": "...", "cn": "..." }... ] } Wrap target in **stars**.`

// selectionPrompt builds the prompt for a word/entity or grammar request.
func selectionPrompt(kind Target, text, context string) string {
	if kind == TargetGrammar {
		return fmt.Sprintf(grammarTemplate, text, context)
	}
	return fmt.Sprintf(wordTemplate, text, context)
}

func fullTextPrompt(text string) string {
	return fmt.Sprintf(fullTextTemplate, truncateRunes(text, fullTextLimit))
}

func examplesPrompt(phrase, meaning string) string {
	return fmt.Sprintf(examplesTemplate, phrase, meaning)
}

// truncateRunes keeps at most n characters of s.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
