package structure

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxHeadingRunes rejects prose lines that happen to start like a heading.
const maxHeadingRunes = 80

var (
	// markdownHeading matches "# Title" through "###### Title".
	markdownHeading = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*$`)

	// chapterHeading matches numbered chapter/part lines in several languages.
	chapterHeading = regexp.MustCompile(
		`(?i)^(?:chapter|kapitola|part|book|díl|část)\s+(?:\d+|[ivxlcdm]+|one|two|three|four|five|six|seven|eight|nine|ten)\b(?:\s*[:.\-–—]\s*\S.*|\s+\S.*)?$`,
	)

	// namedHeading matches standalone section names used as chapters.
	namedHeading = regexp.MustCompile(
		`(?i)^(?:prologue|prolog|epilogue|epilog|preface|foreword|introduction|úvod|závěr|conclusion|afterword|předmluva|doslov)[.:]?$`,
	)

	// subchapterHeading matches "1.2 Title", "1.2.3", "Section 4: Title" and "Subchapter 2".
	subchapterHeading = regexp.MustCompile(
		`(?i)^(?:\d+\.\d+(?:\.\d+)*|(?:section|subchapter)\s+\d+)(?:[ \t]*[:.\-][ \t]*[^\n]+|[ \t]+[^\n]+)?$`,
	)
)

// line is one line of text with byte offsets; end excludes the newline.
type line struct {
	text  string
	start int
	end   int
}

func splitLines(text string, from, to int) []line {
	var lines []line
	pos := from
	for pos < to {
		nl := strings.IndexByte(text[pos:to], '\n')
		end := to
		if nl >= 0 {
			end = pos + nl
		}
		lines = append(lines, line{text: text[pos:end], start: pos, end: end})
		if nl < 0 {
			break
		}
		pos = end + 1
	}
	return lines
}

// chapterTitle returns the chapter title if the line is a chapter heading.
func chapterTitle(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || utf8.RuneCountInString(s) > maxHeadingRunes {
		return "", false
	}
	if m := markdownHeading.FindStringSubmatch(s); m != nil {
		if len(m[1]) <= 2 {
			return collapse(m[2]), true
		}
		return "", false
	}
	if chapterHeading.MatchString(s) || namedHeading.MatchString(s) {
		return collapse(s), true
	}
	return "", false
}

// subchapterTitle returns the subchapter title if the line is a subchapter heading.
func subchapterTitle(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || utf8.RuneCountInString(s) > maxHeadingRunes {
		return "", false
	}
	if m := markdownHeading.FindStringSubmatch(s); m != nil {
		if len(m[1]) >= 3 {
			return collapse(m[2]), true
		}
		return "", false
	}
	if subchapterHeading.MatchString(s) {
		return collapse(s), true
	}
	return "", false
}

// headingChapters finds chapters by heading lines. Text before the first
// heading becomes a front matter chapter when it has content.
func headingChapters(text string) []chapterSpan {
	var chapters []chapterSpan
	for _, ln := range splitLines(text, 0, len(text)) {
		title, ok := chapterTitle(ln.text)
		if !ok {
			continue
		}
		if n := len(chapters); n > 0 {
			chapters[n-1].end = ln.start
		}
		bodyStart := ln.end
		if bodyStart < len(text) {
			bodyStart++
		}
		chapters = append(chapters, chapterSpan{
			title:     title,
			start:     ln.start,
			bodyStart: bodyStart,
			end:       len(text),
		})
	}
	if len(chapters) == 0 {
		return nil
	}

	if a, b := trimSpan(text, 0, chapters[0].start); b > a {
		front := chapterSpan{title: FrontMatterTitle, start: 0, bodyStart: 0, end: chapters[0].start}
		front.subs = []subSpan{}
		chapters = append([]chapterSpan{front}, chapters...)
	}
	return chapters
}

// detectSubchapters finds subchapter headings inside a chapter body.
func detectSubchapters(text string, from, to int) []subSpan {
	var subs []subSpan
	for _, ln := range splitLines(text, from, to) {
		title, ok := subchapterTitle(ln.text)
		if !ok {
			continue
		}
		bodyStart := ln.end
		if bodyStart < to {
			bodyStart++
		}
		subs = append(subs, subSpan{title: title, start: ln.start, bodyStart: bodyStart})
	}
	return subs
}
