// Package voices lists the voices offered by the registered TTS providers.
package voices

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jackzampolin/bookvoice/internal/providers"
)

// Voice is one selectable voice of a TTS provider.
type Voice struct {
	VoiceID   string `json:"voice_id" yaml:"voice_id"`
	Name      string `json:"name" yaml:"name"`
	Provider  string `json:"provider" yaml:"provider"`
	IsDefault bool   `json:"is_default" yaml:"is_default"`
}

// ListConfig selects what to list.
type ListConfig struct {
	Registry *providers.Registry
	// Provider limits the listing to one registered provider. Empty lists all.
	Provider string
	// Defaults maps provider name to its configured voice, marked IsDefault.
	Defaults map[string]string
	Logger   *slog.Logger
}

// List asks each TTS provider that can enumerate voices for its list.
// Providers that fail are logged and skipped unless a single provider
// was requested.
func List(ctx context.Context, cfg ListConfig) ([]Voice, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}

	names := cfg.Registry.ListTTS()
	if cfg.Provider != "" {
		if !slices.Contains(names, cfg.Provider) {
			return nil, fmt.Errorf("TTS provider not found: %s", cfg.Provider)
		}
		names = []string{cfg.Provider}
	}

	var out []Voice
	for _, name := range names {
		tts, _, err := cfg.Registry.GetTTS(name)
		if err != nil {
			return nil, err
		}
		lister, ok := tts.(providers.VoicesLister)
		if !ok {
			cfg.Logger.Debug("provider cannot list voices", "provider", name)
			continue
		}
		vs, err := lister.ListVoices(ctx)
		if err != nil {
			if cfg.Provider != "" {
				return nil, fmt.Errorf("failed to list voices for %s: %w", name, err)
			}
			cfg.Logger.Warn("failed to list voices", "provider", name, "error", err)
			continue
		}
		def := cfg.Defaults[name]
		for _, v := range vs {
			out = append(out, Voice{
				VoiceID:   v.VoiceID,
				Name:      v.Name,
				Provider:  name,
				IsDefault: def != "" && strings.EqualFold(v.VoiceID, def),
			})
		}
	}

	slices.SortStableFunc(out, func(a, b Voice) int {
		return strings.Compare(a.Provider, b.Provider)
	})
	return out, nil
}
