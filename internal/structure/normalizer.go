// Package structure turns cleaned book text into ordered structural units.
//
// A well-formed outline is the only source of chapter boundaries when
// present. Otherwise chapters are detected from heading lines in the text.
// The two sources are never mixed within one document.
package structure

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/jackzampolin/bookvoice/internal/types"
)

// Fallback reasons recorded when the outline path is not used.
const (
	ReasonOutlineMissing     = "outline_missing"
	ReasonOutlineInvalid     = "outline_invalid"
	ReasonOutlineUnavailable = "outline_unavailable"
)

// Metadata source values, kept separate from the per-unit source tag.
const (
	MetadataSourceOutline = "outline"
	MetadataSourceText    = "text_heuristic"
)

// FrontMatterTitle names the chapter holding text before the first heading.
const FrontMatterTitle = "Front Matter"

// Result is the output of normalization.
type Result struct {
	Units          []types.StructuralUnit
	Source         types.UnitSource
	FallbackReason string
	FallbackDetail string
}

// MetadataSource returns the document-level source label.
func (r *Result) MetadataSource() string {
	if r.Source == types.SourceOutline {
		return MetadataSourceOutline
	}
	return MetadataSourceText
}

// ChapterCount returns the number of distinct chapters.
func (r *Result) ChapterCount() int {
	return len(types.Chapters(r.Units))
}

// Normalizer builds structural units from documents.
type Normalizer struct {
	logger *slog.Logger
}

// New creates a normalizer. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// chapterSpan is a chapter located in the document text by byte offsets.
type chapterSpan struct {
	title     string
	start     int
	bodyStart int
	end       int
	subs      []subSpan
}

// subSpan is a subchapter heading inside a chapter.
type subSpan struct {
	title     string
	start     int
	bodyStart int
}

// Normalize derives structural units from a cleaned document.
// It returns a StructureError when no units can be derived at all.
func (n *Normalizer) Normalize(doc *types.Document) (*Result, error) {
	text, starts := doc.Text()
	res := &Result{}

	switch {
	case doc.HasOutline():
		chapters, err := outlineChapters(text, starts, doc.Outline)
		if err == nil {
			units := buildUnits(text, chapters, types.SourceOutline)
			if len(units) > 0 {
				res.Units = units
				res.Source = types.SourceOutline
				n.logger.Debug("structure from outline", "chapters", len(chapters), "units", len(units))
				return res, nil
			}
			err = fmt.Errorf("outline produced no units")
		}
		res.FallbackReason = ReasonOutlineInvalid
		res.FallbackDetail = err.Error()
	case doc.OutlineStatus != "":
		res.FallbackReason = doc.OutlineStatus
	default:
		res.FallbackReason = ReasonOutlineMissing
	}

	n.logger.Info("using heading heuristic",
		"fallback_reason", res.FallbackReason,
		"detail", res.FallbackDetail,
	)

	chapters := headingChapters(text)
	res.Units = buildUnits(text, chapters, types.SourceHeadingHeuristic)
	res.Source = types.SourceHeadingHeuristic
	if len(res.Units) == 0 {
		return res, types.NewStageError(types.KindStructure, "structure",
			"no chapter headings or outline entries found").
			WithHint("the document will be chunked as a single chapter")
	}
	return res, nil
}

// buildUnits converts chapter spans into ordered units.
func buildUnits(text string, chapters []chapterSpan, source types.UnitSource) []types.StructuralUnit {
	conv := newRuneConverter(text)
	var units []types.StructuralUnit

	emit := func(chapterIdx int, ch chapterSpan, sub *int, subTitle *string, content string, a, b int) {
		if b <= a {
			return
		}
		units = append(units, types.StructuralUnit{
			OrderIndex:      len(units),
			ChapterIndex:    chapterIdx,
			ChapterTitle:    ch.title,
			SubchapterIndex: sub,
			SubchapterTitle: subTitle,
			Text:            content,
			CharStart:       conv.runes(a),
			CharEnd:         conv.runes(b),
			Source:          source,
		})
	}

	for i, ch := range chapters {
		chapterIdx := i + 1
		subs := ch.subs
		if subs == nil {
			subs = detectSubchapters(text, ch.bodyStart, ch.end)
		}

		if len(subs) == 0 {
			a, b := trimSpan(text, ch.bodyStart, ch.end)
			if b > a {
				emit(chapterIdx, ch, nil, nil, text[a:b], a, b)
			} else {
				emit(chapterIdx, ch, nil, nil, ch.title, ch.start, ch.end)
			}
			continue
		}

		if a, b := trimSpan(text, ch.bodyStart, subs[0].start); b > a {
			emit(chapterIdx, ch, nil, nil, text[a:b], a, b)
		}
		for j, sub := range subs {
			end := ch.end
			if j+1 < len(subs) {
				end = subs[j+1].start
			}
			idx := j + 1
			title := sub.title
			if a, b := trimSpan(text, sub.bodyStart, end); b > a {
				emit(chapterIdx, ch, &idx, &title, text[a:b], a, b)
			} else {
				emit(chapterIdx, ch, &idx, &title, title, sub.start, sub.bodyStart)
			}
		}
	}
	return units
}

func trimSpan(text string, a, b int) (int, int) {
	if a < 0 {
		a = 0
	}
	if b > len(text) {
		b = len(text)
	}
	for a < b && isSpaceByte(text[a]) {
		a++
	}
	for b > a && isSpaceByte(text[b-1]) {
		b--
	}
	return a, b
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r' || c == '\f' || c == '\v'
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// runeConverter maps byte offsets to rune offsets for increasing inputs.
type runeConverter struct {
	text      string
	byteAt    int
	runeCount int
}

func newRuneConverter(text string) *runeConverter {
	return &runeConverter{text: text}
}

func (c *runeConverter) runes(byteOffset int) int {
	if byteOffset < c.byteAt {
		c.byteAt, c.runeCount = 0, 0
	}
	c.runeCount += utf8.RuneCountInString(c.text[c.byteAt:byteOffset])
	c.byteAt = byteOffset
	return c.runeCount
}
