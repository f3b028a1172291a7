package clean

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	singleCapital = regexp.MustCompile(`^\p{Lu}$`)
	capsWord      = regexp.MustCompile(`^(\s*)(\p{Lu}{3,})(.*)$`)
	headingLike   = regexp.MustCompile(`^\p{Lu}[\p{Lu}\s'"&\-]*$`)
	listMarker    = regexp.MustCompile(`^(?:\d+[.)]|[A-Za-z][.)]|[-*])$`)
	listItem      = regexp.MustCompile(`^(?:\d+[.)]|[A-Za-z][.)]|[-*])\s+`)
)

// DropCaps merges a decorative initial printed on its own line back into
// the capitalized word that follows it:
//
//	T
//	HERE was a river.   ->   THERE was a river.
//
// LastMerges holds the merge count of the most recent Apply.
type DropCaps struct {
	LastMerges int
}

func (*DropCaps) Name() string { return "drop_caps" }

func (d *DropCaps) Apply(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	merges := 0

	for i := 0; i < len(lines); i++ {
		current := strings.TrimSpace(lines[i])
		if !singleCapital.MatchString(current) {
			out = append(out, lines[i])
			continue
		}
		next := nextNonEmpty(lines, i+1)
		if next < 0 || next-i > 2 || isHeadingLike(lines[next]) || inListContext(lines, i) {
			out = append(out, lines[i])
			continue
		}
		m := capsWord.FindStringSubmatch(lines[next])
		if m == nil {
			out = append(out, lines[i])
			continue
		}
		out = append(out, m[1]+current+m[2]+m[3])
		merges++
		i = next
	}

	d.LastMerges = merges
	return strings.Join(out, "\n")
}

func nextNonEmpty(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return -1
}

func prevNonEmpty(lines []string, before int) int {
	for i := before - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return -1
}

// isHeadingLike reports a short all-caps line of at most two words.
func isHeadingLike(line string) bool {
	s := strings.TrimSpace(line)
	words := 0
	for _, w := range strings.Fields(s) {
		if strings.IndexFunc(w, unicode.IsLetter) >= 0 {
			words++
		}
	}
	if words == 0 || words > 2 {
		return false
	}
	return headingLike.MatchString(s)
}

func inListContext(lines []string, i int) bool {
	if p := prevNonEmpty(lines, i); p >= 0 && listMarker.MatchString(strings.TrimSpace(lines[p])) {
		return true
	}
	if n := nextNonEmpty(lines, i+1); n >= 0 && listItem.MatchString(strings.TrimSpace(lines[n])) {
		return true
	}
	return false
}
