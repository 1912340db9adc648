package overlay

import "strings"

// SplitParagraphs splits imported text on line breaks, trimming each line
// and dropping blank ones.
func SplitParagraphs(text string) []string {
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		if p := strings.TrimSpace(line); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}
