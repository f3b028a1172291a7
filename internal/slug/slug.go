// Package slug derives the filesystem-safe name fragments shared by chunk
// part IDs and audio filenames.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is used when a title has no ASCII alphanumerics left after folding.
const Fallback = "part"

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Title folds a title into a lowercase ASCII slug.
// Accents are decomposed and dropped, so "Úvod" becomes "uvod".
func Title(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	for _, r := range folded {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}

	s := nonAlnum.ReplaceAllString(strings.ToLower(b.String()), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}

// PartID returns the stable identifier for a chapter part, e.g. "001_01_uvod".
func PartID(chapterIndex, partIndex int, title string) string {
	return fmt.Sprintf("%03d_%02d_%s", chapterIndex, partIndex, Title(title))
}

// Filename returns the audio filename for a part with the given extension.
func Filename(chapterIndex, partIndex int, title, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return PartID(chapterIndex, partIndex, title)
	}
	return PartID(chapterIndex, partIndex, title) + "." + ext
}
