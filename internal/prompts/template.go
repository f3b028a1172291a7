package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// variablePattern matches template references like {{.Language}} or {{ .Book.Title }}.
var variablePattern = regexp.MustCompile(`\{\{\s*\.([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// ExtractVariables returns the sorted, de-duplicated template variables in text.
func ExtractVariables(text string) []string {
	var vars []string
	for _, match := range variablePattern.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(vars, match[1]) {
			vars = append(vars, match[1])
		}
	}
	slices.Sort(vars)
	return vars
}

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// LanguageName returns the English display name for a BCP 47 tag such as
// "cs" or "en-GB". Unparseable input is returned unchanged so free-form
// names like "Czech" keep working.
func LanguageName(code string) string {
	code = strings.TrimSpace(code)
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
