package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookvoice/internal/config"
	"github.com/jackzampolin/bookvoice/internal/home"
	"github.com/jackzampolin/bookvoice/internal/pipeline"
	"github.com/jackzampolin/bookvoice/internal/prompts"
	"github.com/jackzampolin/bookvoice/internal/providers"
	"github.com/jackzampolin/bookvoice/internal/svcctx"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// runFlagKeys maps run flags to the config keys they override.
var runFlagKeys = map[string]string{
	"language":           "defaults.language",
	"translate-provider": "defaults.translate_provider",
	"rewrite-provider":   "defaults.rewrite_provider",
	"tts-provider":       "defaults.tts_provider",
	"rewrite-bypass":     "defaults.rewrite_bypass",
	"workers":            "defaults.workers",
	"budget":             "planner.budget_chars",
	"package":            "audio.package_format",
	"numbering":          "audio.package_numbering",
}

// addRunFlags registers the flags that override run settings.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("language", "", "target language (BCP 47)")
	f.String("translate-provider", "", "LLM provider for translation")
	f.String("rewrite-provider", "", "LLM provider for the narration rewrite")
	f.String("tts-provider", "", "TTS provider")
	f.Bool("rewrite-bypass", false, "skip the rewrite pass and narrate translations as-is")
	f.Int("workers", 0, "concurrent provider calls per stage")
	f.Int("budget", 0, "target characters per narration segment")
	f.String("package", "", "per-chapter package format: none, mp3, m4a or wav")
	f.String("numbering", "", "packaged chapter numbering: source or sequential")
}

// setupServices loads configuration, builds the logger and the provider
// registry, and attaches them to the command context. Flags changed on
// the command line override the config file.
func setupServices(cmd *cobra.Command) (*svcctx.Services, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	cm, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	for name, key := range runFlagKeys {
		if fl := cmd.Flags().Lookup(name); fl != nil && fl.Changed {
			if err := cm.BindFlag(key, fl); err != nil {
				return nil, err
			}
		}
	}
	cfg, err := cm.Refresh()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	cm.SetLogger(logger)

	registry := providers.NewRegistry()
	registry.SetLogger(logger)
	registry.Reload(cfg.ToProviderRegistryConfig())
	cm.OnChange(func(c *config.Config) {
		registry.Reload(c.ToProviderRegistryConfig())
	})
	if cm.ConfigFile() != "" {
		cm.WatchConfig()
		logger.Debug("watching config", "file", cm.ConfigFile())
	}

	s := &svcctx.Services{
		Registry: registry,
		Config:   cm,
		Logger:   logger,
		Home:     h,
	}
	cmd.SetContext(svcctx.WithServices(cmd.Context(), s))
	return s, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// promptResolver returns a resolver honoring the configured override
// directory, or the home prompts directory when none is set.
func promptResolver(s *svcctx.Services) *prompts.Resolver {
	dir := s.Config.Get().Prompts.Dir
	if dir == "" {
		dir = s.Home.PromptsPath()
	}
	return pipeline.NewPromptResolver(dir, s.Logger)
}

// newRun resolves settings for a source file and wires the factory.
func newRun(s *svcctx.Services, source, selection string) (types.RunSettings, *pipeline.Factory, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return types.RunSettings{}, nil, fmt.Errorf("failed to resolve %s: %w", source, err)
	}
	resolver := promptResolver(s)
	cfg := s.Config.Get()
	settings, err := pipeline.ResolveSettings(cfg, resolver, abs, selection)
	if err != nil {
		return settings, nil, err
	}
	f, err := newFactory(s, settings, resolver)
	return settings, f, err
}

func newFactory(s *svcctx.Services, settings types.RunSettings, resolver *prompts.Resolver) (*pipeline.Factory, error) {
	return pipeline.NewFactory(settings, pipeline.Deps{
		Config:   s.Config.Get(),
		Registry: s.Registry,
		Prompts:  resolver,
		Logger:   s.Logger,
	})
}

// runDir resolves a run directory argument: an existing path, or a run id
// under the home runs directory.
func runDir(s *svcctx.Services, arg string) (string, error) {
	if st, err := os.Stat(arg); err == nil && st.IsDir() {
		return arg, nil
	}
	if strings.HasPrefix(arg, types.RunIDPrefix) && !strings.ContainsAny(arg, `/\`) {
		dir := s.Home.RunPath(arg)
		if _, err := os.Stat(dir); err == nil {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no run directory or run id %q (see `bookvoice runs`)", arg)
}
