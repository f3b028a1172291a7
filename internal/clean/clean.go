// Package clean applies deterministic cleanup rules to extracted book text.
//
// Rules run in a fixed order so identical input always produces identical
// output. Each rule only looks at the text it is given, which lets callers
// clean sections independently and keep section offsets aligned.
package clean

import (
	"regexp"
	"strings"
)

// Rule is one cleanup transformation.
type Rule interface {
	Name() string
	Apply(text string) string
}

// Report is the result of cleaning.
type Report struct {
	Text          string   `json:"-"`
	DropCapMerges int      `json:"drop_cap_merges"`
	RulesApplied  []string `json:"rules_applied"`
}

// Cleaner applies rules in order.
type Cleaner struct {
	rules   []Rule
	dropCap *DropCaps
}

// New returns a cleaner with the given rules, or the default sequence when
// none are given.
func New(rules ...Rule) *Cleaner {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	c := &Cleaner{rules: rules}
	for _, r := range rules {
		if dc, ok := r.(*DropCaps); ok {
			c.dropCap = dc
		}
	}
	return c
}

// DefaultRules returns the standard rule sequence.
func DefaultRules() []Rule {
	return []Rule{
		PageNumbers{},
		Hyphenation{},
		&DropCaps{},
		Quotes{},
		Whitespace{},
		FigureRefs{},
	}
}

// Clean applies every rule and returns the cleaned text.
func (c *Cleaner) Clean(text string) string {
	return c.CleanWithReport(text).Text
}

// CleanWithReport applies every rule and reports what changed.
func (c *Cleaner) CleanWithReport(text string) Report {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	rep := Report{}
	for _, r := range c.rules {
		next := r.Apply(text)
		if next != text {
			rep.RulesApplied = append(rep.RulesApplied, r.Name())
		}
		text = next
	}
	if c.dropCap != nil {
		rep.DropCapMerges = c.dropCap.LastMerges
	}
	rep.Text = strings.TrimSpace(text)
	return rep
}

var pageNumberLine = regexp.MustCompile(`(?m)^[ \t]*\d+[ \t]*$`)

// PageNumbers removes lines holding only a page number.
type PageNumbers struct{}

func (PageNumbers) Name() string { return "page_numbers" }

func (PageNumbers) Apply(text string) string {
	return pageNumberLine.ReplaceAllString(text, "")
}

var hyphenBreak = regexp.MustCompile(`([\p{L}\p{N}])-\n([\p{L}\p{N}])`)

// Hyphenation joins words split by a hyphen at a line break.
type Hyphenation struct{}

func (Hyphenation) Name() string { return "hyphenation" }

func (Hyphenation) Apply(text string) string {
	return hyphenBreak.ReplaceAllString(text, "$1$2")
}

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
)

// Quotes maps typographic quotes to ASCII.
type Quotes struct{}

func (Quotes) Name() string { return "quotes" }

func (Quotes) Apply(text string) string {
	return quoteReplacer.Replace(text)
}

var (
	spaceRun      = regexp.MustCompile(`[ \t]+`)
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
)

// Whitespace collapses runs of spaces and tabs and strips line tails.
type Whitespace struct{}

func (Whitespace) Name() string { return "whitespace" }

func (Whitespace) Apply(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")
	return trailingSpace.ReplaceAllString(text, "\n")
}

var figureRef = regexp.MustCompile(`(?i)\[(?:fig(?:ure)?\.?\s*\d+)\]`)

// FigureRefs removes bracketed figure references such as [Fig. 3].
type FigureRefs struct{}

func (FigureRefs) Name() string { return "figure_refs" }

func (FigureRefs) Apply(text string) string {
	return figureRef.ReplaceAllString(text, "")
}
