package structure

import (
	"fmt"
	"strings"

	"github.com/jackzampolin/bookvoice/internal/types"
)

// outlineChapters resolves outline entries to chapter spans. Any malformed
// entry invalidates the whole outline. Text before the first entry is not
// part of any chapter.
func outlineChapters(text string, starts []int, entries []types.OutlineEntry) ([]chapterSpan, error) {
	sectionEnd := func(i int) int {
		if i+1 < len(starts) {
			return starts[i+1] - len(types.SectionSeparator)
		}
		return len(text)
	}

	chapters := make([]chapterSpan, 0, len(entries))
	prevSection := -1
	for i, e := range entries {
		title := collapse(e.Title)
		if title == "" {
			return nil, fmt.Errorf("entry %d has an empty title", i+1)
		}
		if e.Section < 0 || e.Section >= len(starts) {
			return nil, fmt.Errorf("entry %q points outside the document (section %d of %d)", title, e.Section, len(starts))
		}
		if e.Section <= prevSection {
			return nil, fmt.Errorf("entry %q does not start after the previous chapter", title)
		}
		prevSection = e.Section

		start, bodyStart := locateTitle(text, starts[e.Section], sectionEnd(e.Section), title)
		chapters = append(chapters, chapterSpan{
			title:     title,
			start:     start,
			bodyStart: bodyStart,
			end:       len(text),
		})
	}
	for i := 0; i+1 < len(chapters); i++ {
		chapters[i].end = chapters[i+1].start
	}

	for i, e := range entries {
		if len(e.Children) == 0 {
			continue
		}
		nextSection := len(starts)
		if i+1 < len(entries) {
			nextSection = entries[i+1].Section
		}
		subs := make([]subSpan, 0, len(e.Children))
		for _, child := range e.Children {
			title := collapse(child.Title)
			if title == "" {
				return nil, fmt.Errorf("chapter %q has a subchapter with an empty title", chapters[i].title)
			}
			if child.Section < e.Section || child.Section >= nextSection {
				return nil, fmt.Errorf("subchapter %q lies outside chapter %q", title, chapters[i].title)
			}
			start, bodyStart := locateTitle(text, starts[child.Section], sectionEnd(child.Section), title)
			if start < chapters[i].bodyStart {
				start = chapters[i].bodyStart
				if bodyStart < start {
					bodyStart = start
				}
			}
			if n := len(subs); n > 0 && start <= subs[n-1].start {
				return nil, fmt.Errorf("subchapter %q does not start after %q", title, subs[n-1].title)
			}
			if start >= chapters[i].end {
				return nil, fmt.Errorf("subchapter %q starts after chapter %q ends", title, chapters[i].title)
			}
			subs = append(subs, subSpan{title: title, start: start, bodyStart: bodyStart})
		}
		chapters[i].subs = subs
	}
	return chapters, nil
}

// locateTitle finds the heading line for title within [from, to). When the
// line is not found the span starts at from with no heading.
func locateTitle(text string, from, to int, title string) (int, int) {
	for _, ln := range splitLines(text, from, to) {
		candidate := collapse(strings.TrimLeft(ln.text, "# "))
		if strings.EqualFold(candidate, title) {
			body := ln.end
			if body < len(text) {
				body++
			}
			return ln.start, body
		}
	}
	return from, from
}
