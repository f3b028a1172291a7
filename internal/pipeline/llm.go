package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jackzampolin/bookvoice/internal/prompts"
	"github.com/jackzampolin/bookvoice/internal/prompts/rewrite"
	"github.com/jackzampolin/bookvoice/internal/prompts/translate"
	"github.com/jackzampolin/bookvoice/internal/providers"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// LLMTranslator translates chunks with a chat completion provider.
type LLMTranslator struct {
	Registry *providers.Registry
	Provider string
	Model    string
	Language string
	Prompts  *prompts.Resolver
	Cache    *providers.ResponseCache
	Logger   *slog.Logger
}

// Translate sends the chunk text under the translate system prompt.
func (t *LLMTranslator) Translate(ctx context.Context, chunk types.Chunk) (types.Translation, error) {
	system, _, err := t.Prompts.Render(translate.SystemPromptKey, translate.NewData(t.Language))
	if err != nil {
		return types.Translation{}, err
	}
	res, err := complete(ctx, chatCall{
		registry: t.Registry,
		cache:    t.Cache,
		provider: t.Provider,
		model:    t.Model,
		op:       "translate",
		system:   system,
		user:     chunk.Text,
		identity: map[string]string{"target_language": t.Language, "source_text": chunk.Text},
	}, t.Logger)
	if err != nil {
		return types.Translation{}, fmt.Errorf("failed to translate %s: %w", chunk.PartID, err)
	}
	return types.Translation{
		Chunk:          chunk,
		TranslatedText: res.Content,
		Provider:       t.Provider,
		Model:          modelOf(res, t.Model),
		CostUSD:        res.CostUSD,
	}, nil
}

// LLMRewriter rewrites translations for narration with a chat completion provider.
type LLMRewriter struct {
	Registry *providers.Registry
	Provider string
	Model    string
	Language string
	Prompts  *prompts.Resolver
	Cache    *providers.ResponseCache
	Logger   *slog.Logger
}

// Rewrite sends the translated text under the rewrite system prompt.
func (r *LLMRewriter) Rewrite(ctx context.Context, tr types.Translation) (types.Rewrite, error) {
	system, _, err := r.Prompts.Render(rewrite.SystemPromptKey, rewrite.NewData(r.Language))
	if err != nil {
		return types.Rewrite{}, err
	}
	res, err := complete(ctx, chatCall{
		registry: r.Registry,
		cache:    r.Cache,
		provider: r.Provider,
		model:    r.Model,
		op:       "rewrite",
		system:   system,
		user:     tr.TranslatedText,
		identity: map[string]string{"target_language": r.Language, "translated_text": tr.TranslatedText},
	}, r.Logger)
	if err != nil {
		return types.Rewrite{}, fmt.Errorf("failed to rewrite %s: %w", tr.Chunk.PartID, err)
	}
	return types.Rewrite{
		Translation:   tr,
		RewrittenText: res.Content,
		Provider:      r.Provider,
		Model:         modelOf(res, r.Model),
		CostUSD:       res.CostUSD,
	}, nil
}

// BypassRewriter passes translations through unchanged.
type BypassRewriter struct{}

// Rewrite returns the translated text as the narration text.
func (BypassRewriter) Rewrite(_ context.Context, tr types.Translation) (types.Rewrite, error) {
	return types.Rewrite{
		Translation:   tr,
		RewrittenText: tr.TranslatedText,
		Provider:      BypassProvider,
	}, nil
}

// chatCall is one system+user completion. Identity keys the response
// cache; the system prompt is folded in.
type chatCall struct {
	registry *providers.Registry
	cache    *providers.ResponseCache
	provider string
	model    string
	op       string
	system   string
	user     string
	identity map[string]string
}

func complete(ctx context.Context, c chatCall, logger *slog.Logger) (*providers.ChatResult, error) {
	client, guard, err := c.registry.GetLLM(c.provider)
	if err != nil {
		return nil, err
	}
	req := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: c.system},
			{Role: "user", Content: c.user},
		},
		Model:     c.model,
		RequestID: uuid.NewString(),
	}
	call := func() (*providers.ChatResult, error) {
		res, attempts, err := providers.Do(ctx, guard, c.op, func(ctx context.Context) (*providers.ChatResult, error) {
			return client.Chat(ctx, req)
		})
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(res.Content) == "" {
			return nil, fmt.Errorf("%s returned empty content", c.provider)
		}
		if logger != nil {
			logger.Debug("llm call complete",
				"op", c.op,
				"provider", c.provider,
				"request_id", req.RequestID,
				"attempts", attempts,
				"cost_usd", res.CostUSD)
		}
		return res, nil
	}
	if c.cache == nil {
		return call()
	}

	identity := map[string]string{"system_prompt": c.system}
	for k, v := range c.identity {
		identity[k] = v
	}
	key := providers.CacheKey(c.provider, c.model, c.op, identity)
	res, hit, err := c.cache.Do(key, call)
	if err != nil {
		return nil, err
	}
	if hit && logger != nil {
		logger.Debug("llm cache hit", "op", c.op, "provider", c.provider)
	}
	return res, nil
}

func modelOf(res *providers.ChatResult, fallback string) string {
	if res.ModelUsed != "" {
		return res.ModelUsed
	}
	return fallback
}

// TTSSynthesizer synthesizes narration with a TTS provider.
type TTSSynthesizer struct {
	Registry     *providers.Registry
	Provider     string
	Voice        string
	Format       string
	Instructions string
}

// Synthesize generates audio for text.
func (s *TTSSynthesizer) Synthesize(ctx context.Context, chunk types.Chunk, text string) (*providers.TTSResult, error) {
	tts, guard, err := s.Registry.GetTTS(s.Provider)
	if err != nil {
		return nil, err
	}
	req := &providers.TTSRequest{
		Text:         text,
		Voice:        s.Voice,
		Format:       s.Format,
		Instructions: s.Instructions,
	}
	res, _, err := providers.Do(ctx, guard, "synthesize", func(ctx context.Context) (*providers.TTSResult, error) {
		return tts.Generate(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize %s: %w", chunk.PartID, err)
	}
	if len(res.Audio) == 0 {
		return nil, fmt.Errorf("failed to synthesize %s: provider returned no audio", chunk.PartID)
	}
	return res, nil
}
