// Package chapters parses chapter selection expressions such as "1,3-5".
package chapters

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackzampolin/bookvoice/internal/types"
)

// SyntaxHint describes accepted selection syntax.
const SyntaxHint = "use syntax like `5`, `1,3,7`, `2-4`, or `1,3-5`"

// Scope modes.
const (
	ModeAll      = "all"
	ModeSelected = "selected"
)

// Scope describes which chapters a run covers.
type Scope struct {
	Mode             string `json:"mode" jsonschema:"required,enum=all,enum=selected"`
	Label            string `json:"label" jsonschema:"required"`
	SelectionInput   string `json:"selection_input"`
	Indices          []int  `json:"indices" jsonschema:"required"`
	AvailableIndices []int  `json:"available_indices" jsonschema:"required"`
}

// Contains reports whether a chapter is in scope.
func (s Scope) Contains(chapterIndex int) bool {
	i := sort.SearchInts(s.Indices, chapterIndex)
	return i < len(s.Indices) && s.Indices[i] == chapterIndex
}

// Parse expands a selection against the available chapter indices.
// A blank selection selects every chapter.
func Parse(selection string, available []int) ([]int, error) {
	avail := uniqueSorted(available)
	if len(avail) == 0 {
		return nil, fmt.Errorf("no chapters are available for selection")
	}
	if strings.TrimSpace(selection) == "" || strings.EqualFold(strings.TrimSpace(selection), ModeAll) {
		return avail, nil
	}

	availSet := make(map[int]bool, len(avail))
	for _, idx := range avail {
		availSet[idx] = true
	}

	seen := make(map[int]bool)
	var selected []int
	for _, token := range strings.Split(selection, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("malformed chapter selection: empty item in list; %s", SyntaxHint)
		}
		start, end, err := bounds(token)
		if err != nil {
			return nil, err
		}
		if end > avail[len(avail)-1] {
			return nil, fmt.Errorf("chapter %d is out of available bounds %d-%d", end, avail[0], avail[len(avail)-1])
		}
		for idx := start; idx <= end; idx++ {
			if !availSet[idx] {
				return nil, fmt.Errorf("chapter %d is out of available bounds %d-%d", idx, avail[0], avail[len(avail)-1])
			}
			if seen[idx] {
				return nil, fmt.Errorf("overlapping chapter selection contains duplicate index %d", idx)
			}
			seen[idx] = true
			selected = append(selected, idx)
		}
	}
	sort.Ints(selected)
	return selected, nil
}

// bounds parses a single index or a closed range.
func bounds(token string) (int, int, error) {
	if !strings.Contains(token, "-") {
		idx, err := parseIndex(token)
		if err != nil {
			return 0, 0, err
		}
		return idx, idx, nil
	}
	if strings.Count(token, "-") != 1 {
		return 0, 0, fmt.Errorf("malformed chapter range %q; use closed range syntax like `2-4`", token)
	}
	lo, hi, _ := strings.Cut(token, "-")
	if strings.TrimSpace(lo) == "" || strings.TrimSpace(hi) == "" {
		return 0, 0, fmt.Errorf("malformed chapter range %q; use closed range syntax like `2-4`", token)
	}
	start, err := parseIndex(lo)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseIndex(hi)
	if err != nil {
		return 0, 0, err
	}
	if start > end {
		return 0, 0, fmt.Errorf("malformed chapter range %q: start must not exceed end", token)
	}
	return start, end, nil
}

func parseIndex(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid chapter index %q; chapter indices are positive integers", s)
	}
	return n, nil
}

// Format renders indices in compact range syntax, e.g. "1,3-5".
func Format(indices []int) string {
	ordered := uniqueSorted(indices)
	if len(ordered) == 0 {
		return ""
	}
	var parts []string
	start, end := ordered[0], ordered[0]
	flush := func() {
		if start == end {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, end))
		}
	}
	for _, idx := range ordered[1:] {
		if idx == end+1 {
			end = idx
			continue
		}
		flush()
		start, end = idx, idx
	}
	flush()
	return strings.Join(parts, ",")
}

// Resolve parses a selection and builds the scope description.
func Resolve(selection string, available []int) (Scope, error) {
	selected, err := Parse(selection, available)
	if err != nil {
		return Scope{}, fmt.Errorf("invalid chapter selection: %w", err)
	}
	avail := uniqueSorted(available)
	scope := Scope{
		Mode:             ModeSelected,
		Label:            Format(selected),
		SelectionInput:   strings.TrimSpace(selection),
		Indices:          selected,
		AvailableIndices: avail,
	}
	if len(selected) == len(avail) {
		scope.Mode = ModeAll
		scope.Label = ModeAll
		scope.SelectionInput = ModeAll
	}
	return scope, nil
}

// Filter keeps units whose chapter is in scope.
func Filter(units []types.StructuralUnit, scope Scope) []types.StructuralUnit {
	out := make([]types.StructuralUnit, 0, len(units))
	for _, u := range units {
		if scope.Contains(u.ChapterIndex) {
			out = append(out, u)
		}
	}
	return out
}

// Indices returns the distinct chapter indices present in units.
func Indices(units []types.StructuralUnit) []int {
	idx := make([]int, 0, len(units))
	for _, u := range units {
		idx = append(idx, u.ChapterIndex)
	}
	return uniqueSorted(idx)
}

func uniqueSorted(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
