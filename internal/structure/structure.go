// Package structure provides the default document structure extractor:
// it splits raw text into ordered units for the chunker. Paragraphs are
// splittable; fenced code blocks are atomic. Unit texts keep their
// separators so concatenating them reproduces the input byte for byte.
package structure

import (
	"strings"

	"github.com/telliott/codeatlas/internal/chunk"
)

// Extractor splits documents into structural units.
type Extractor struct{}

// NewExtractor returns the default extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Units returns the ordered structural units of content.
func (e *Extractor) Units(content string) []chunk.StructuralUnit {
	var units []chunk.StructuralUnit
	lines := splitAfterNewlines(content)

	var buf strings.Builder
	flush := func(splittable bool) {
		if buf.Len() == 0 {
			return
		}
		units = append(units, chunk.StructuralUnit{Text: buf.String(), Splittable: splittable})
		buf.Reset()
	}

	for i := 0; i < len(lines); {
		line := lines[i]

		if marker := fenceMarker(line); marker != "" {
			flush(true)
			buf.WriteString(line)
			i++
			for i < len(lines) {
				buf.WriteString(lines[i])
				closed := fenceMarker(lines[i]) == marker
				i++
				if closed {
					break
				}
			}
			// Trailing blank lines belong to the fence unit so the next
			// paragraph starts clean.
			for i < len(lines) && isBlank(lines[i]) {
				buf.WriteString(lines[i])
				i++
			}
			flush(false)
			continue
		}

		buf.WriteString(line)
		i++
		if isBlank(line) {
			continue
		}
		// A paragraph ends at the first blank line; the blank run is
		// kept as the paragraph's trailing separator.
		if i < len(lines) && isBlank(lines[i]) {
			for i < len(lines) && isBlank(lines[i]) {
				buf.WriteString(lines[i])
				i++
			}
			flush(true)
		}
	}
	flush(true)

	return units
}

// splitAfterNewlines splits content into lines that keep their
// terminating newline, so the pieces concatenate back exactly.
func splitAfterNewlines(content string) []string {
	var lines []string
	for len(content) > 0 {
		i := strings.IndexByte(content, '\n')
		if i < 0 {
			lines = append(lines, content)
			break
		}
		lines = append(lines, content[:i+1])
		content = content[i+1:]
	}
	return lines
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func fenceMarker(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	switch {
	case strings.HasPrefix(trimmed, "```"):
		return "```"
	case strings.HasPrefix(trimmed, "~~~"):
		return "~~~"
	}
	return ""
}
