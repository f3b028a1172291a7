package structure

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackzampolin/bookvoice/internal/types"
)

func checkUnitInvariants(t *testing.T, doc *types.Document, units []types.StructuralUnit) {
	t.Helper()
	text, _ := doc.Text()
	r := []rune(text)
	lastChapter := 0
	seen := map[int]bool{}
	for i, u := range units {
		if u.OrderIndex != i {
			t.Errorf("unit %d has order index %d", i, u.OrderIndex)
		}
		if u.CharEnd <= u.CharStart {
			t.Errorf("unit %d has empty span [%d,%d)", i, u.CharStart, u.CharEnd)
		}
		if u.ChapterIndex != lastChapter {
			if seen[u.ChapterIndex] {
				t.Errorf("chapter %d is not contiguous", u.ChapterIndex)
			}
			if u.ChapterIndex < lastChapter {
				t.Errorf("chapter order decreased at unit %d", i)
			}
			seen[u.ChapterIndex] = true
			lastChapter = u.ChapterIndex
		}
		if u.Text != u.ChapterTitle && (u.SubchapterTitle == nil || u.Text != *u.SubchapterTitle) {
			if got := string(r[u.CharStart:u.CharEnd]); got != u.Text {
				t.Errorf("unit %d text does not match its span: %q vs %q", i, u.Text, got)
			}
		}
	}
}

func TestNormalizeHeadingHeuristic(t *testing.T) {
	text := strings.Join([]string{
		"Copyright notice and dedication.",
		"",
		"Chapter 1: Úvod",
		"",
		"Opening paragraph of the first chapter.",
		"",
		"1.1 Background",
		"",
		"Background text.",
		"",
		"1.2 Goals",
		"",
		"Goals text.",
		"",
		"# Chapter Two",
		"",
		"Second chapter body.",
	}, "\n")
	doc := &types.Document{Sections: []string{text}}

	res, err := New(nil).Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if res.Source != types.SourceHeadingHeuristic {
		t.Errorf("source = %q", res.Source)
	}
	if res.FallbackReason != ReasonOutlineMissing {
		t.Errorf("fallback reason = %q", res.FallbackReason)
	}
	if res.MetadataSource() != MetadataSourceText {
		t.Errorf("metadata source = %q", res.MetadataSource())
	}
	if res.ChapterCount() != 3 {
		t.Fatalf("expected 3 chapters (front matter + 2), got %d", res.ChapterCount())
	}

	units := res.Units
	checkUnitInvariants(t, doc, units)

	if units[0].ChapterTitle != FrontMatterTitle || units[0].Text != "Copyright notice and dedication." {
		t.Errorf("unexpected front matter unit: %+v", units[0])
	}

	var sub []types.StructuralUnit
	for _, u := range units {
		if u.ChapterIndex == 2 && u.HasSubchapter() {
			sub = append(sub, u)
		}
	}
	if len(sub) != 2 {
		t.Fatalf("expected 2 subchapters in chapter 2, got %d", len(sub))
	}
	if *sub[0].SubchapterIndex != 1 || *sub[0].SubchapterTitle != "1.1 Background" || sub[0].Text != "Background text." {
		t.Errorf("unexpected first subchapter: %+v", sub[0])
	}
	if units[len(units)-1].ChapterTitle != "Chapter Two" {
		t.Errorf("last chapter title = %q", units[len(units)-1].ChapterTitle)
	}
}

func TestNormalizeOutline(t *testing.T) {
	doc := &types.Document{
		Sections: []string{
			"Title page",
			"Prologue\nIt was a dark night.",
			"More of the prologue.",
			"The Storm\nRain fell.\n\nThen it stopped.",
		},
		Outline: []types.OutlineEntry{
			{Title: "Prologue", Section: 1},
			{Title: "The  Storm", Section: 3},
		},
	}

	res, err := New(nil).Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if res.Source != types.SourceOutline {
		t.Fatalf("source = %q (%s)", res.Source, res.FallbackDetail)
	}
	if res.FallbackReason != "" {
		t.Errorf("fallback reason = %q", res.FallbackReason)
	}
	checkUnitInvariants(t, doc, res.Units)

	if len(res.Units) != 2 {
		t.Fatalf("expected 2 units, got %d: %+v", len(res.Units), res.Units)
	}
	if res.Units[0].Text != "It was a dark night.\n\nMore of the prologue." {
		t.Errorf("prologue text = %q", res.Units[0].Text)
	}
	if res.Units[1].ChapterTitle != "The Storm" || res.Units[1].ChapterIndex != 2 {
		t.Errorf("unexpected second unit: %+v", res.Units[1])
	}
	for _, u := range res.Units {
		if u.Source != types.SourceOutline {
			t.Errorf("unit %d source = %q", u.OrderIndex, u.Source)
		}
		if strings.Contains(u.Text, "Title page") {
			t.Errorf("text before the first outline entry leaked into unit %d", u.OrderIndex)
		}
	}
}

func TestNormalizeOutlineChildren(t *testing.T) {
	doc := &types.Document{
		Sections: []string{
			"Part One\nIntro.\nFirst Steps\nStep text.",
			"Second Steps\nMore steps.",
		},
		Outline: []types.OutlineEntry{
			{Title: "Part One", Section: 0, Children: []types.OutlineEntry{
				{Title: "First Steps", Section: 0},
				{Title: "Second Steps", Section: 1},
			}},
		},
	}

	res, err := New(nil).Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if res.Source != types.SourceOutline {
		t.Fatalf("source = %q (%s)", res.Source, res.FallbackDetail)
	}
	checkUnitInvariants(t, doc, res.Units)
	if len(res.Units) != 3 {
		t.Fatalf("expected intro + 2 subchapters, got %d: %+v", len(res.Units), res.Units)
	}
	if res.Units[0].HasSubchapter() || res.Units[0].Text != "Intro." {
		t.Errorf("unexpected intro unit: %+v", res.Units[0])
	}
	if *res.Units[2].SubchapterTitle != "Second Steps" || res.Units[2].Text != "More steps." {
		t.Errorf("unexpected last unit: %+v", res.Units[2])
	}
}

func TestNormalizeInvalidOutlineFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		outline []types.OutlineEntry
	}{
		{"non increasing", []types.OutlineEntry{{Title: "B", Section: 1}, {Title: "A", Section: 0}}},
		{"empty title", []types.OutlineEntry{{Title: "  ", Section: 0}}},
		{"out of range", []types.OutlineEntry{{Title: "A", Section: 9}}},
		{"child outside chapter", []types.OutlineEntry{
			{Title: "A", Section: 0, Children: []types.OutlineEntry{{Title: "x", Section: 1}}},
			{Title: "B", Section: 1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &types.Document{
				Sections: []string{"Chapter 1\nFirst.", "Chapter 2\nSecond."},
				Outline:  tt.outline,
			}
			res, err := New(nil).Normalize(doc)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if res.Source != types.SourceHeadingHeuristic {
				t.Errorf("source = %q", res.Source)
			}
			if res.FallbackReason != ReasonOutlineInvalid {
				t.Errorf("fallback reason = %q", res.FallbackReason)
			}
			if res.FallbackDetail == "" {
				t.Error("expected fallback detail")
			}
			for _, u := range res.Units {
				if u.Source != types.SourceHeadingHeuristic {
					t.Errorf("mixed source in unit %d", u.OrderIndex)
				}
			}
			if res.ChapterCount() != 2 {
				t.Errorf("expected 2 chapters, got %d", res.ChapterCount())
			}
		})
	}
}

func TestNormalizeNoStructure(t *testing.T) {
	doc := &types.Document{Sections: []string{"Just a paragraph.\n\nAnd another one."}}
	_, err := New(nil).Normalize(doc)
	if err == nil {
		t.Fatal("expected StructureError")
	}
	if !errors.Is(err, types.ErrStructure) {
		t.Fatalf("expected ErrStructure, got %v", err)
	}
}

func TestNormalizeEmptyChapterUsesTitle(t *testing.T) {
	doc := &types.Document{Sections: []string{"Part 1\n\nChapter 1\nBody text."}}
	res, err := New(nil).Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(res.Units) != 2 {
		t.Fatalf("expected 2 units, got %+v", res.Units)
	}
	if res.Units[0].Text != "Part 1" {
		t.Errorf("empty chapter text = %q", res.Units[0].Text)
	}
	if res.Units[1].Text != "Body text." {
		t.Errorf("chapter text = %q", res.Units[1].Text)
	}
}

func TestNormalizeUnavailableOutlineStatus(t *testing.T) {
	doc := &types.Document{
		Sections:      []string{"Chapter 1\nText."},
		OutlineStatus: ReasonOutlineUnavailable,
	}
	res, err := New(nil).Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if res.FallbackReason != ReasonOutlineUnavailable {
		t.Errorf("fallback reason = %q", res.FallbackReason)
	}
}

func TestChapterTitle(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{"Chapter 12: The End", "Chapter 12: The End", true},
		{"KAPITOLA III", "KAPITOLA III", true},
		{"## Second", "Second", true},
		{"### Deep", "", false},
		{"Úvod", "Úvod", true},
		{"Part of the problem was the weather.", "", false},
		{"Chapter " + strings.Repeat("x", 100), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := chapterTitle(tt.line)
			if ok != tt.ok || got != tt.want {
				t.Errorf("chapterTitle(%q) = %q, %v", tt.line, got, ok)
			}
		})
	}
}
