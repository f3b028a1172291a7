// Package segment plans narration segments from structural units and adapts
// them into persisted chunks.
package segment

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jackzampolin/bookvoice/internal/sentence"
	"github.com/jackzampolin/bookvoice/internal/types"
)

const (
	// DefaultBudgetChars is the preferred segment size.
	DefaultBudgetChars = 6500
	// DefaultCeilingChars caps a segment at roughly ten minutes of narration.
	DefaultCeilingChars = 9300

	// StrategyPlanner marks plans built from structural units.
	StrategyPlanner = "text_budget_segment_planner"
	// StrategyFallback marks plans built by chunking the whole document.
	StrategyFallback = "chunker_fallback"
)

// paragraphSeparator joins merged pieces.
const paragraphSeparator = "\n\n"

var paragraphBreak = regexp.MustCompile(`\n\s*\n+`)

// Config holds planner sizing.
type Config struct {
	BudgetChars  int
	CeilingChars int
	Sentence     sentence.Config
}

// DefaultConfig returns the default sizing.
func DefaultConfig() Config {
	return Config{
		BudgetChars:  DefaultBudgetChars,
		CeilingChars: DefaultCeilingChars,
		Sentence:     sentence.DefaultConfig(),
	}
}

// Plan is the output of planning.
type Plan struct {
	Strategy           string
	BudgetChars        int
	CeilingChars       int
	Segments           []types.PlannedSegment
	SourceUnitCount    int
	SourceOrderIndices []int
	ForcedSplitCount   int
}

// Planner builds segment plans.
type Planner struct {
	budget  int
	ceiling int
	chunker *sentence.Chunker
	logger  *slog.Logger
}

// NewPlanner validates sizing and creates a planner.
// The active budget is the smaller of the budget and the ceiling.
func NewPlanner(cfg Config, logger *slog.Logger) (*Planner, error) {
	if cfg.BudgetChars <= 0 {
		return nil, fmt.Errorf("budget_chars must be a positive integer, got %d", cfg.BudgetChars)
	}
	if cfg.CeilingChars <= 0 {
		cfg.CeilingChars = DefaultCeilingChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	budget := cfg.BudgetChars
	if budget > cfg.CeilingChars {
		budget = cfg.CeilingChars
	}
	return &Planner{
		budget:  budget,
		ceiling: cfg.CeilingChars,
		chunker: sentence.New(cfg.Sentence),
		logger:  logger,
	}, nil
}

// Budget returns the active budget.
func (p *Planner) Budget() int {
	return p.budget
}

// Ceiling returns the hard ceiling.
func (p *Planner) Ceiling() int {
	return p.ceiling
}

// piece is a paragraph or sentence-split part of a unit, with absolute rune offsets.
type piece struct {
	text       string
	start      int
	end        int
	orderIndex int
	strategy   types.BoundaryStrategy
}

// draft accumulates pieces for one segment.
type draft struct {
	texts    []string
	length   int
	start    int
	end      int
	indices  []int
	strategy types.BoundaryStrategy
}

func (d *draft) empty() bool {
	return len(d.texts) == 0
}

func (d *draft) add(pc piece) {
	if d.empty() {
		d.start = pc.start
		d.length = utf8.RuneCountInString(pc.text)
	} else {
		d.length += utf8.RuneCountInString(paragraphSeparator) + utf8.RuneCountInString(pc.text)
	}
	d.texts = append(d.texts, pc.text)
	d.end = pc.end
	if n := len(d.indices); n == 0 || d.indices[n-1] != pc.orderIndex {
		d.indices = append(d.indices, pc.orderIndex)
	}
	d.strategy = pc.strategy
}

// fits reports whether pc can join the draft within budget and ceiling.
func (d *draft) fits(pc piece, budget, ceiling int) bool {
	joined := d.length + utf8.RuneCountInString(paragraphSeparator) + utf8.RuneCountInString(pc.text)
	return joined <= budget && pc.end-d.start <= ceiling
}

// Plan groups units by chapter and packs paragraphs into segments.
// Segments never cross chapter boundaries.
func (p *Planner) Plan(units []types.StructuralUnit) (*Plan, error) {
	ordered := make([]types.StructuralUnit, len(units))
	copy(ordered, units)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].ChapterIndex != ordered[j].ChapterIndex {
			return ordered[i].ChapterIndex < ordered[j].ChapterIndex
		}
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})

	plan := &Plan{
		Strategy:           StrategyPlanner,
		BudgetChars:        p.budget,
		CeilingChars:       p.ceiling,
		SourceUnitCount:    len(units),
		SourceOrderIndices: make([]int, 0, len(units)),
	}

	for start := 0; start < len(ordered); {
		end := start
		for end < len(ordered) && ordered[end].ChapterIndex == ordered[start].ChapterIndex {
			end++
		}
		p.planChapter(plan, ordered[start:end])
		start = end
	}
	for _, u := range ordered {
		plan.SourceOrderIndices = append(plan.SourceOrderIndices, u.OrderIndex)
	}

	if err := Verify(plan, units); err != nil {
		return nil, err
	}
	p.logger.Debug("planned segments",
		"segments", len(plan.Segments),
		"units", len(units),
		"forced_splits", plan.ForcedSplitCount,
	)
	return plan, nil
}

func (p *Planner) planChapter(plan *Plan, units []types.StructuralUnit) {
	chapterIdx := units[0].ChapterIndex
	title := partTitle(units)
	part := 0

	var cur draft
	flush := func() {
		if cur.empty() {
			return
		}
		part++
		text := strings.Join(cur.texts, paragraphSeparator)
		plan.Segments = append(plan.Segments, types.PlannedSegment{
			ChapterIndex:       chapterIdx,
			PartIndex:          part,
			Title:              title,
			Text:               text,
			SourceOrderIndices: cur.indices,
			CharCount:          utf8.RuneCountInString(text),
			CharStart:          cur.start,
			CharEnd:            cur.end,
			BoundaryStrategy:   cur.strategy,
		})
		cur = draft{}
	}

	for _, u := range units {
		for _, pc := range p.unitPieces(u) {
			if pc.strategy == types.BoundaryForced {
				plan.ForcedSplitCount++
				p.logger.Warn("forced split without sentence boundary",
					"kind", types.KindBoundaryExhausted,
					"chapter", chapterIdx,
					"order_index", u.OrderIndex,
					"char_start", pc.start,
				)
			}
			if !cur.empty() && !cur.fits(pc, p.budget, p.ceiling) {
				flush()
			}
			cur.add(pc)
		}
	}
	flush()
}

// unitPieces splits a unit into paragraphs, sentence-splitting any paragraph
// larger than the budget.
func (p *Planner) unitPieces(u types.StructuralUnit) []piece {
	var pieces []piece
	for _, para := range paragraphSpans(u.Text) {
		start := u.CharStart + para.start
		if para.length() <= p.budget {
			pieces = append(pieces, p.clamp(u, piece{
				text:       para.text,
				start:      start,
				end:        start + para.length(),
				orderIndex: u.OrderIndex,
				strategy:   types.BoundaryParagraph,
			}))
			continue
		}
		for _, sp := range p.chunker.Split(para.text, p.budget, p.ceiling) {
			pieces = append(pieces, p.clamp(u, piece{
				text:       sp.Text,
				start:      start + sp.Start,
				end:        start + sp.End,
				orderIndex: u.OrderIndex,
				strategy:   sp.Strategy,
			}))
		}
	}
	return pieces
}

// clamp keeps piece offsets inside the unit span. Title-only units carry text
// that is not a literal slice of the document.
func (p *Planner) clamp(u types.StructuralUnit, pc piece) piece {
	if pc.end > u.CharEnd {
		pc.end = u.CharEnd
	}
	if pc.start > pc.end {
		pc.start = pc.end
	}
	return pc
}

// span is a paragraph with rune offsets relative to the source text.
type span struct {
	text  string
	start int
	end   int
}

func (s span) length() int {
	return s.end - s.start
}

// paragraphSpans splits text on blank lines and trims each paragraph.
func paragraphSpans(text string) []span {
	var spans []span
	byteStart := 0
	emit := func(a, b int) {
		raw := text[a:b]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return
		}
		lead := strings.Index(raw, trimmed)
		runeStart := utf8.RuneCountInString(text[:a+lead])
		spans = append(spans, span{
			text:  trimmed,
			start: runeStart,
			end:   runeStart + utf8.RuneCountInString(trimmed),
		})
	}
	for _, loc := range paragraphBreak.FindAllStringIndex(text, -1) {
		emit(byteStart, loc[0])
		byteStart = loc[1]
	}
	emit(byteStart, len(text))
	return spans
}

// partTitle picks the chapter title, then the first subchapter title, then "Chapter N".
func partTitle(units []types.StructuralUnit) string {
	if t := strings.TrimSpace(units[0].ChapterTitle); t != "" {
		return t
	}
	for _, u := range units {
		if u.SubchapterTitle != nil {
			if t := strings.TrimSpace(*u.SubchapterTitle); t != "" {
				return t
			}
		}
	}
	return "Chapter " + strconv.Itoa(units[0].ChapterIndex)
}

// PlanFallback chunks a whole document as a single chapter when no structure
// could be derived. It returns the synthetic unit the plan refers to.
func (p *Planner) PlanFallback(text, title string) (*Plan, types.StructuralUnit, error) {
	if strings.TrimSpace(title) == "" {
		title = "Chapter 1"
	}
	unit := types.StructuralUnit{
		OrderIndex:   0,
		ChapterIndex: 1,
		ChapterTitle: title,
		Text:         text,
		CharStart:    0,
		CharEnd:      utf8.RuneCountInString(text),
		Source:       types.SourceHeadingHeuristic,
	}

	plan := &Plan{
		Strategy:           StrategyFallback,
		BudgetChars:        p.budget,
		CeilingChars:       p.ceiling,
		SourceUnitCount:    1,
		SourceOrderIndices: []int{0},
	}
	for i, sp := range p.chunker.Split(text, p.budget, p.ceiling) {
		if sp.Forced() {
			plan.ForcedSplitCount++
		}
		plan.Segments = append(plan.Segments, types.PlannedSegment{
			ChapterIndex:       1,
			PartIndex:          i + 1,
			Title:              title,
			Text:               sp.Text,
			SourceOrderIndices: []int{0},
			CharCount:          utf8.RuneCountInString(sp.Text),
			CharStart:          sp.Start,
			CharEnd:            sp.End,
			BoundaryStrategy:   sp.Strategy,
		})
	}
	if len(plan.Segments) == 0 {
		return nil, unit, types.NewStageError(types.KindStructure, "structure", "document has no text to chunk")
	}
	if err := Verify(plan, []types.StructuralUnit{unit}); err != nil {
		return nil, unit, err
	}
	p.logger.Info("planned with chunker fallback", "segments", len(plan.Segments))
	return plan, unit, nil
}
