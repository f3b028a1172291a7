// Package sentence splits oversized text spans at sentence boundaries.
//
// The chunker searches backward from the target offset for a sentence end,
// then forward within a safety margin, and finally hard cuts when the text
// has no usable punctuation. Offsets and sizes are counted in runes.
package sentence

import (
	"strings"
	"unicode"

	"github.com/jackzampolin/bookvoice/internal/types"
)

const (
	// DefaultBackwardWindowRatio bounds the backward search as a fraction of the target.
	DefaultBackwardWindowRatio = 0.40
	// DefaultForwardMarginRatio bounds the forward search as a fraction of the target.
	DefaultForwardMarginRatio = 0.20
)

// Config controls the search windows.
type Config struct {
	BackwardWindowRatio float64
	ForwardMarginRatio  float64
}

// DefaultConfig returns the default search windows.
func DefaultConfig() Config {
	return Config{
		BackwardWindowRatio: DefaultBackwardWindowRatio,
		ForwardMarginRatio:  DefaultForwardMarginRatio,
	}
}

// Chunker splits text at sentence boundaries.
type Chunker struct {
	cfg Config
}

// New creates a chunker. Non-positive ratios fall back to defaults.
func New(cfg Config) *Chunker {
	if cfg.BackwardWindowRatio <= 0 || cfg.BackwardWindowRatio > 1 {
		cfg.BackwardWindowRatio = DefaultBackwardWindowRatio
	}
	if cfg.ForwardMarginRatio <= 0 {
		cfg.ForwardMarginRatio = DefaultForwardMarginRatio
	}
	return &Chunker{cfg: cfg}
}

// Piece is one split of the input text.
// Start and End are rune offsets into the text passed to Split; Text is the
// trimmed content of that span.
type Piece struct {
	Text     string
	Start    int
	End      int
	Strategy types.BoundaryStrategy
}

// Len returns the piece length in runes.
func (p Piece) Len() int {
	return p.End - p.Start
}

// Forced reports whether the piece was hard cut.
func (p Piece) Forced() bool {
	return p.Strategy == types.BoundaryForced
}

// Margin returns the forward safety margin for a target size.
func (c *Chunker) Margin(target int) int {
	return int(float64(target) * c.cfg.ForwardMarginRatio)
}

// Split cuts text into pieces of roughly target runes. No piece exceeds
// target plus the forward margin, and none exceeds limit when limit > 0.
// The final piece ends at the end of the text and is marked paragraph_preferred.
func (c *Chunker) Split(text string, target, limit int) []Piece {
	r := []rune(text)
	if target <= 0 {
		return nil
	}

	maxLen := target + c.Margin(target)
	if limit > 0 && maxLen > limit {
		maxLen = limit
	}
	if target > maxLen {
		target = maxLen
	}

	var pieces []Piece
	pos := skipSpace(r, 0)
	for pos < len(r) {
		if len(r)-pos <= target {
			pieces = append(pieces, newPiece(r, pos, len(r), types.BoundaryParagraph))
			break
		}
		cut, strategy := c.boundary(r, pos, target, maxLen)
		pieces = append(pieces, newPiece(r, pos, cut, strategy))
		pos = skipSpace(r, cut)
	}
	return pieces
}

// boundary picks the end offset for the piece starting at pos. Periods win
// over other terminators inside the backward window. Past the window the
// nearest earlier sentence end still beats the forward margin and a hard cut.
func (c *Chunker) boundary(r []rune, pos, target, maxLen int) (int, types.BoundaryStrategy) {
	t := pos + target
	lo := t - int(float64(target)*c.cfg.BackwardWindowRatio)
	if lo <= pos {
		lo = pos + 1
	}
	hi := pos + maxLen
	if hi > len(r) {
		hi = len(r)
	}

	for _, marks := range []string{".", "!?"} {
		if cut, ok := searchBack(r, pos, t-1, lo-1, hi, marks); ok {
			return cut, types.BoundarySentence
		}
	}

	for i := t; i < hi; i++ {
		if !isTerminator(r[i]) {
			continue
		}
		if cut, ok := sentenceEnd(r, pos, i); ok && cut <= hi {
			return cut, types.BoundarySentence
		}
	}

	if cut, ok := searchBack(r, pos, lo-2, pos+1, hi, ".!?"); ok {
		return cut, types.BoundarySentence
	}

	if hi == len(r) {
		return hi, types.BoundaryParagraph
	}
	return hi, types.BoundaryForced
}

// searchBack scans from index from down to index to for a terminator in
// marks that ends a sentence no later than hi.
func searchBack(r []rune, pos, from, to, hi int, marks string) (int, bool) {
	for i := from; i >= to && i > pos; i-- {
		if !strings.ContainsRune(marks, r[i]) {
			continue
		}
		if cut, ok := sentenceEnd(r, pos, i); ok && cut <= hi {
			return cut, true
		}
	}
	return 0, false
}

func newPiece(r []rune, start, end int, strategy types.BoundaryStrategy) Piece {
	for end > start && unicode.IsSpace(r[end-1]) {
		end--
	}
	return Piece{
		Text:     string(r[start:end]),
		Start:    start,
		End:      end,
		Strategy: strategy,
	}
}

func skipSpace(r []rune, i int) int {
	for i < len(r) && unicode.IsSpace(r[i]) {
		i++
	}
	return i
}

func isTerminator(ch rune) bool {
	return ch == '.' || ch == '!' || ch == '?'
}

// closers may trail a terminator and belong to the same sentence.
const closers = "\"'”’»)]"

// sentenceEnd reports whether the terminator at i ends a sentence and returns
// the cut offset just past it and any closing quotes or brackets.
func sentenceEnd(r []rune, start, i int) (int, bool) {
	cut := i + 1
	for cut < len(r) && strings.ContainsRune(closers, r[cut]) {
		cut++
	}
	if cut < len(r) && !unicode.IsSpace(r[cut]) {
		return 0, false
	}
	if r[i] == '.' {
		if isDecimalPoint(r, i) || isAbbreviation(r, start, i) {
			return 0, false
		}
	}
	return cut, true
}

func isDecimalPoint(r []rune, i int) bool {
	return i > 0 && i+1 < len(r) && unicode.IsDigit(r[i-1]) && unicode.IsDigit(r[i+1])
}

// abbreviations never end a sentence when followed by a period.
var abbreviations = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true,
	"st": true, "jr": true, "sr": true, "vs": true,
	"e.g": true, "i.e": true, "fig": true, "vol": true,
	"ch": true, "pp": true, "cf": true, "mt": true, "gen": true,
	"col": true, "lt": true, "capt": true, "rev": true, "hon": true,
	"např": true, "tzv": true, "tj": true, "resp": true, "str": true,
}

func isAbbreviation(r []rune, start, i int) bool {
	j := i
	for j > start && (unicode.IsLetter(r[j-1]) || (r[j-1] == '.' && j-1 > start && unicode.IsLetter(r[j-2]))) {
		j--
	}
	word := string(r[j:i])
	if word == "" {
		return false
	}
	// A lone capital is an initial only when a capitalized word follows,
	// so "World War I." can still end a sentence before lowercase text or
	// the end of input.
	if w := []rune(word); len(w) == 1 && unicode.IsUpper(w[0]) {
		return capitalFollows(r, i+1)
	}
	return abbreviations[strings.ToLower(word)]
}

func capitalFollows(r []rune, i int) bool {
	i = skipSpace(r, i)
	return i < len(r) && unicode.IsUpper(r[i])
}
