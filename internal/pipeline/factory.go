package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/bookvoice/internal/audio"
	"github.com/jackzampolin/bookvoice/internal/clean"
	"github.com/jackzampolin/bookvoice/internal/config"
	"github.com/jackzampolin/bookvoice/internal/extract"
	"github.com/jackzampolin/bookvoice/internal/prompts"
	"github.com/jackzampolin/bookvoice/internal/prompts/rewrite"
	"github.com/jackzampolin/bookvoice/internal/prompts/translate"
	"github.com/jackzampolin/bookvoice/internal/providers"
	"github.com/jackzampolin/bookvoice/internal/segment"
	"github.com/jackzampolin/bookvoice/internal/sentence"
	"github.com/jackzampolin/bookvoice/internal/structure"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// BypassProvider names the pass-through rewriter.
const BypassProvider = "bypass"

// Factory holds the collaborators for one run.
type Factory struct {
	Extractor   Extractor
	Cleaner     *clean.Cleaner
	Normalizer  *structure.Normalizer
	Planner     *segment.Planner
	Translator  Translator
	Rewriter    Rewriter
	Synthesizer Synthesizer
	Encoder     Encoder
	Cache       *providers.ResponseCache
	Workers     int
	Logger      *slog.Logger
}

// Deps are the services a factory is built from.
type Deps struct {
	Config   *config.Config
	Registry *providers.Registry
	Prompts  *prompts.Resolver
	Logger   *slog.Logger
}

// NewPromptResolver returns a resolver with the stage prompts registered.
func NewPromptResolver(dir string, logger *slog.Logger) *prompts.Resolver {
	r := prompts.NewResolver(dir, logger)
	translate.RegisterPrompts(r)
	rewrite.RegisterPrompts(r)
	return r
}

// ResolveSettings builds run settings from configuration, including the
// hashes of the prompts the run will use.
func ResolveSettings(cfg *config.Config, resolver *prompts.Resolver, sourcePath, chapterSelection string) (types.RunSettings, error) {
	s := cfg.RunSettings(sourcePath, chapterSelection)
	p, err := resolver.Resolve(translate.SystemPromptKey)
	if err != nil {
		return s, fmt.Errorf("failed to resolve translate prompt: %w", err)
	}
	s.TranslatePrompt = p.Hash
	if !s.RewriteBypass {
		p, err := resolver.Resolve(rewrite.SystemPromptKey)
		if err != nil {
			return s, fmt.Errorf("failed to resolve rewrite prompt: %w", err)
		}
		s.RewritePrompt = p.Hash
	}
	return s, nil
}

// NewFactory wires collaborators for settings. Providers are looked up in
// the registry on every call, so a registry reload takes effect mid-run.
func NewFactory(settings types.RunSettings, deps Deps) (*Factory, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	resolver := deps.Prompts
	if resolver == nil {
		resolver = NewPromptResolver("", logger)
	}

	planner, err := segment.NewPlanner(segment.Config{
		BudgetChars:  settings.BudgetChars,
		CeilingChars: settings.CeilingChars,
		Sentence: sentence.Config{
			BackwardWindowRatio: settings.BackwardWindow,
			ForwardMarginRatio:  settings.ForwardMargin,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create planner: %w", err)
	}

	encoder, err := audio.New(cfg.Audio.Encoder, cfg.Audio.FFmpegPath, cfg.Audio.FFprobePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio encoder: %w", err)
	}

	cache := providers.NewResponseCache()
	f := &Factory{
		Extractor:  fileExtractor{},
		Cleaner:    clean.New(),
		Normalizer: structure.New(logger),
		Planner:    planner,
		Translator: &LLMTranslator{
			Registry: deps.Registry,
			Provider: settings.TranslateProvider,
			Model:    settings.TranslateModel,
			Language: settings.Language,
			Prompts:  resolver,
			Cache:    cache,
			Logger:   logger,
		},
		Synthesizer: &TTSSynthesizer{
			Registry: deps.Registry,
			Provider: settings.TTSProvider,
			Voice:    settings.Voice,
			Format:   settings.AudioFormat,
		},
		Encoder: encoder,
		Cache:   cache,
		Workers: cfg.Defaults.Workers,
		Logger:  logger,
	}
	if tts, ok := cfg.GetTTSProvider(settings.TTSProvider); ok {
		f.Synthesizer.(*TTSSynthesizer).Instructions = tts.Instructions
	}
	if settings.RewriteBypass {
		f.Rewriter = BypassRewriter{}
	} else {
		f.Rewriter = &LLMRewriter{
			Registry: deps.Registry,
			Provider: settings.RewriteProvider,
			Model:    settings.RewriteModel,
			Language: settings.Language,
			Prompts:  resolver,
			Cache:    cache,
			Logger:   logger,
		}
	}
	if f.Workers < 1 {
		f.Workers = 1
	}
	return f, nil
}

// fileExtractor dispatches on the file extension.
type fileExtractor struct {
	opts extract.Options
}

func (e fileExtractor) Extract(ctx context.Context, path string) (*types.Document, error) {
	return extract.Extract(ctx, path, e.opts)
}
