// Package translate holds the translation stage prompt.
package translate

import (
	_ "embed"

	"github.com/jackzampolin/bookvoice/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

// SystemPromptKey identifies the translation system prompt.
const SystemPromptKey = "stages.translate.system"

// Data is the template input for the system prompt.
type Data struct {
	Language     string
	LanguageName string
}

// NewData builds template data for a target language code.
func NewData(lang string) Data {
	return Data{Language: lang, LanguageName: prompts.LanguageName(lang)}
}

// RegisterPrompts registers the translation prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Translation system prompt; the chunk text is sent as the user message",
	})
}
