package workflow

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SplitSections partitions the layout markdown at heading boundaries. A
// layout with no recognizable headings yields a single section; text
// before the first heading becomes its own heading-less section.
func SplitSections(layout string) []Section {
	trimmed := strings.TrimRight(layout, "\n")
	if strings.TrimSpace(trimmed) == "" {
		return nil
	}

	source := []byte(trimmed)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var offsets []int
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Lines().Len() == 0 {
			continue
		}
		offsets = append(offsets, lineStart(source, heading.Lines().At(0).Start))
	}

	if len(offsets) == 0 {
		return []Section{{Content: trimmed}}
	}

	var sections []Section
	if offsets[0] > 0 {
		preamble := strings.TrimRight(string(source[:offsets[0]]), "\n")
		if strings.TrimSpace(preamble) != "" {
			sections = append(sections, Section{Content: preamble})
		}
	}

	for i, start := range offsets {
		end := len(source)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		chunk := strings.TrimRight(string(source[start:end]), "\n")
		sections = append(sections, Section{
			Heading: headingTitle(chunk),
			Content: chunk,
		})
	}

	return sections
}

// lineStart walks back from a heading's text offset to the start of its
// line, so the section chunk keeps the "#" markers.
func lineStart(source []byte, offset int) int {
	for offset > 0 && source[offset-1] != '\n' {
		offset--
	}
	return offset
}

// headingTitle extracts the title from a chunk's first line, dropping the
// leading "#" markers.
func headingTitle(chunk string) string {
	line := chunk
	if i := strings.IndexByte(chunk, '\n'); i >= 0 {
		line = chunk[:i]
	}
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
}
