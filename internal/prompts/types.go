// Package prompts provides prompt management with embedded defaults and
// file-based overrides.
//
// Embedded .tmpl files are the source of truth for defaults. A prompts
// directory may hold <key>.tmpl files that replace a default for every run
// using that directory. The resolved text hash is recorded in stage artifact
// metadata so a changed prompt is visible when a run is inspected.
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: stages.translate.system
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the prompt text chosen for a key.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
	Path       string   `json:"path,omitempty"` // override file, if any
	Hash       string   `json:"hash"`
}
