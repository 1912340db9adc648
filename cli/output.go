package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/richinex/lexiread/overlay"
)

// Output formats accepted by --format.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// writeValue encodes v to w in the requested format. Text falls back to JSON
// for values without a text rendering.
func writeValue(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case FormatJSON, FormatText, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format: %q (want json, yaml or text)", format)
	}
}

// writeSegments renders an overlay tree. The text format brackets each
// annotated span so nesting is visible in a terminal.
func writeSegments(w io.Writer, format string, segments []overlay.Segment) error {
	if strings.ToLower(format) != FormatText {
		return writeValue(w, format, segments)
	}
	var b strings.Builder
	renderText(&b, segments)
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func renderText(b *strings.Builder, segments []overlay.Segment) {
	for _, seg := range segments {
		if seg.Kind == overlay.SegmentPlain {
			b.WriteString(seg.Text)
			continue
		}
		b.WriteString("[")
		if len(seg.Children) > 0 {
			renderText(b, seg.Children)
		} else {
			b.WriteString(seg.Text)
		}
		b.WriteString("]")
	}
}
