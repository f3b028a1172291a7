package types

import (
	"strings"
	"unicode/utf8"
)

// SectionSeparator joins document sections into one text.
const SectionSeparator = "\n\n"

// OutlineEntry is a navigation entry pointing at the section where it starts.
// Sections are pages for PDFs and spine documents for EPUBs.
type OutlineEntry struct {
	Title    string         `json:"title"`
	Section  int            `json:"section"`
	Children []OutlineEntry `json:"children,omitempty"`
}

// Document is extracted book content before structure normalization.
type Document struct {
	Title    string         `json:"title,omitempty"`
	Author   string         `json:"author,omitempty"`
	Sections []string       `json:"sections"`
	Outline  []OutlineEntry `json:"outline,omitempty"`
	// OutlineStatus is set by extractors that could not read an outline.
	OutlineStatus string `json:"outline_status,omitempty"`
}

// Text joins sections and returns the byte offset where each section starts.
func (d *Document) Text() (string, []int) {
	var b strings.Builder
	starts := make([]int, len(d.Sections))
	for i, s := range d.Sections {
		if i > 0 {
			b.WriteString(SectionSeparator)
		}
		starts[i] = b.Len()
		b.WriteString(s)
	}
	return b.String(), starts
}

// CharCount returns the joined text length in runes.
func (d *Document) CharCount() int {
	text, _ := d.Text()
	return utf8.RuneCountInString(text)
}

// HasOutline reports whether the document carries any outline entries.
func (d *Document) HasOutline() bool {
	return len(d.Outline) > 0
}
