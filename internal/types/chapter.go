// Package types provides shared types used across multiple packages.
// This package has no dependencies on other bookvoice packages to avoid import cycles.
package types

// UnitSource indicates which detection path produced a structural unit.
type UnitSource string

const (
	// SourceOutline indicates the unit came from the document outline.
	SourceOutline UnitSource = "outline"
	// SourceHeadingHeuristic indicates the unit came from heading detection in cleaned text.
	SourceHeadingHeuristic UnitSource = "heading_heuristic"
)

// StructuralUnit is one contiguous span of a chapter, optionally scoped to a subchapter.
// Character offsets are rune offsets into the cleaned document text.
type StructuralUnit struct {
	OrderIndex      int        `json:"order_index" jsonschema:"required,minimum=0"`
	ChapterIndex    int        `json:"chapter_index" jsonschema:"required,minimum=1"`
	ChapterTitle    string     `json:"chapter_title" jsonschema:"required"`
	SubchapterIndex *int       `json:"subchapter_index,omitempty"`
	SubchapterTitle *string    `json:"subchapter_title,omitempty"`
	Text            string     `json:"text" jsonschema:"required"`
	CharStart       int        `json:"char_start" jsonschema:"required,minimum=0"`
	CharEnd         int        `json:"char_end" jsonschema:"required,minimum=0"`
	Source          UnitSource `json:"source" jsonschema:"required,enum=outline,enum=heading_heuristic"`
}

// HasSubchapter reports whether the unit is scoped to a subchapter.
func (u StructuralUnit) HasSubchapter() bool {
	return u.SubchapterIndex != nil
}

// Len returns the unit span length in characters.
func (u StructuralUnit) Len() int {
	return u.CharEnd - u.CharStart
}

// Chapter is a chapter summary derived from structural units.
type Chapter struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	UnitCount int    `json:"unit_count"`
	CharCount int    `json:"char_count"`
}

// Chapters summarizes units by chapter, in chapter order.
func Chapters(units []StructuralUnit) []Chapter {
	var out []Chapter
	for _, u := range units {
		if n := len(out); n > 0 && out[n-1].Index == u.ChapterIndex {
			out[n-1].UnitCount++
			out[n-1].CharCount += len([]rune(u.Text))
			continue
		}
		out = append(out, Chapter{
			Index:     u.ChapterIndex,
			Title:     u.ChapterTitle,
			UnitCount: 1,
			CharCount: len([]rune(u.Text)),
		})
	}
	return out
}
