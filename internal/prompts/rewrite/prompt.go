// Package rewrite holds the narration rewrite stage prompt.
package rewrite

import (
	_ "embed"

	"github.com/jackzampolin/bookvoice/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

// SystemPromptKey identifies the rewrite system prompt.
const SystemPromptKey = "stages.rewrite.system"

// Data is the template input for the system prompt.
type Data struct {
	Language     string
	LanguageName string
}

// NewData builds template data for a narration language code.
func NewData(lang string) Data {
	return Data{Language: lang, LanguageName: prompts.LanguageName(lang)}
}

// RegisterPrompts registers the rewrite prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Narration rewrite system prompt; the translated text is sent as the user message",
	})
}
