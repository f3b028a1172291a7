package prompts

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/template"
)

// Resolver resolves prompts with directory overrides.
// Resolution order: <dir>/<key>.tmpl > Embedded default
type Resolver struct {
	dir      string
	embedded map[string]EmbeddedPrompt
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewResolver creates a new prompt resolver. An empty dir disables overrides.
func NewResolver(dir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		dir:      dir,
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Register registers an embedded prompt.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// Resolve returns the override for key if the prompts directory has one,
// otherwise the embedded default.
func (r *Resolver) Resolve(key string) (*ResolvedPrompt, error) {
	if r.dir != "" {
		path := filepath.Join(r.dir, key+".tmpl")
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			text := string(data)
			if strings.TrimSpace(text) == "" {
				return nil, fmt.Errorf("prompt override %s is empty", path)
			}
			return &ResolvedPrompt{
				Key:        key,
				Text:       text,
				Variables:  ExtractVariables(text),
				IsOverride: true,
				Path:       path,
				Hash:       HashText(text),
			}, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to read prompt override %s: %w", path, err)
		}
	}

	r.mu.RLock()
	embedded, ok := r.embedded[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", key)
	}

	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Hash:      embedded.Hash,
	}, nil
}

// Render resolves key and executes it as a text/template against data.
// Missing template fields are an error.
func (r *Resolver) Render(key string, data any) (string, *ResolvedPrompt, error) {
	resolved, err := r.Resolve(key)
	if err != nil {
		return "", nil, err
	}
	tmpl, err := template.New(key).Option("missingkey=error").Parse(resolved.Text)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse prompt %s: %w", key, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", nil, fmt.Errorf("failed to render prompt %s: %w", key, err)
	}
	return strings.TrimSpace(buf.String()), resolved, nil
}

// GetEmbedded returns the embedded default for a key.
func (r *Resolver) GetEmbedded(key string) (*EmbeddedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	return &p, ok
}

// AllEmbedded returns all registered embedded prompts sorted by key.
func (r *Resolver) AllEmbedded() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b EmbeddedPrompt) int {
		return strings.Compare(a.Key, b.Key)
	})
	return result
}
