package providers

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Registry holds named LLM clients and TTS providers, each paired with the
// Guard that throttles and retries its calls. It is safe for concurrent use
// and can be reloaded while a run is in progress.
type Registry struct {
	mu           sync.RWMutex
	llmClients   map[string]LLMClient
	ttsProviders map[string]TTSProvider
	guards       map[string]*Guard
	llmConfigs   map[string]LLMProviderConfig
	ttsConfigs   map[string]TTSProviderConfig
	logger       *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients:   make(map[string]LLMClient),
		ttsProviders: make(map[string]TTSProvider),
		guards:       make(map[string]*Guard),
		llmConfigs:   make(map[string]LLMProviderConfig),
		ttsConfigs:   make(map[string]TTSProviderConfig),
		logger:       slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name with an unthrottled guard.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	r.guards[llmKey(name)] = NewGuard(nil, RetryPolicy{Attempts: 1}, r.logger)
	r.logger.Info("registered LLM client", "name", name)
}

// RegisterTTS registers a TTS provider by name with an unthrottled guard.
func (r *Registry) RegisterTTS(name string, provider TTSProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttsProviders[name] = provider
	r.guards[ttsKey(name)] = NewGuard(nil, RetryPolicy{Attempts: 1}, r.logger)
	r.logger.Info("registered TTS provider", "name", name)
}

// GetLLM returns an LLM client and its guard by name.
func (r *Registry) GetLLM(name string) (LLMClient, *Guard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, r.guards[llmKey(name)], nil
}

// GetTTS returns a TTS provider and its guard by name.
func (r *Registry) GetTTS(name string) (TTSProvider, *Guard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.ttsProviders[name]
	if !ok {
		return nil, nil, fmt.Errorf("TTS provider not found: %s", name)
	}
	return provider, r.guards[ttsKey(name)], nil
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ListTTS returns all registered TTS provider names, sorted.
func (r *Registry) ListTTS() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ttsProviders))
	for name := range r.ttsProviders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	LLMProviders map[string]LLMProviderConfig
	TTSProviders map[string]TTSProviderConfig
}

// LLMProviderConfig is one LLM provider with its API key resolved.
type LLMProviderConfig struct {
	Type       string // "openai", "mock"
	Model      string
	APIKey     string
	BaseURL    string
	RateLimit  float64 // Requests per second
	MaxRetries int
	Timeout    time.Duration
	Enabled    bool
}

// TTSProviderConfig is one TTS provider with its API key resolved.
type TTSProviderConfig struct {
	Type         string // "openai", "mock"
	Model        string
	Voice        string
	Speed        float64
	Instructions string
	APIKey       string
	BaseURL      string
	RateLimit    float64
	MaxRetries   int
	Timeout      time.Duration
	Enabled      bool
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with an API key (or the mock type) are registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured are unregistered and providers
// with changed settings are re-created.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wantLLM := make(map[string]bool)
	for name, provCfg := range cfg.LLMProviders {
		if !usable(provCfg.Enabled, provCfg.Type, provCfg.APIKey) {
			continue
		}
		wantLLM[name] = true
		prev, hasExisting := r.llmConfigs[name]
		if hasExisting && prev == provCfg {
			continue
		}
		client := createLLMClient(provCfg)
		if client == nil {
			r.logger.Warn("unknown LLM provider type", "name", name, "type", provCfg.Type)
			delete(wantLLM, name)
			continue
		}
		r.llmClients[name] = client
		r.llmConfigs[name] = provCfg
		r.guards[llmKey(name)] = r.newGuard(provCfg.RateLimit, provCfg.MaxRetries)
		if hasExisting {
			r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
		} else {
			r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
		}
	}

	wantTTS := make(map[string]bool)
	for name, provCfg := range cfg.TTSProviders {
		if !usable(provCfg.Enabled, provCfg.Type, provCfg.APIKey) {
			continue
		}
		wantTTS[name] = true
		prev, hasExisting := r.ttsConfigs[name]
		if hasExisting && prev == provCfg {
			continue
		}
		provider := createTTSProvider(provCfg)
		if provider == nil {
			r.logger.Warn("unknown TTS provider type", "name", name, "type", provCfg.Type)
			delete(wantTTS, name)
			continue
		}
		r.ttsProviders[name] = provider
		r.ttsConfigs[name] = provCfg
		r.guards[ttsKey(name)] = r.newGuard(provCfg.RateLimit, provCfg.MaxRetries)
		if hasExisting {
			r.logger.Info("updated TTS provider", "name", name, "type", provCfg.Type)
		} else {
			r.logger.Info("registered TTS provider", "name", name, "type", provCfg.Type)
		}
	}

	for name := range r.llmClients {
		if !wantLLM[name] {
			delete(r.llmClients, name)
			delete(r.llmConfigs, name)
			delete(r.guards, llmKey(name))
			r.logger.Info("unregistered LLM client", "name", name)
		}
	}
	for name := range r.ttsProviders {
		if !wantTTS[name] {
			delete(r.ttsProviders, name)
			delete(r.ttsConfigs, name)
			delete(r.guards, ttsKey(name))
			r.logger.Info("unregistered TTS provider", "name", name)
		}
	}
}

func (r *Registry) newGuard(rps float64, retries int) *Guard {
	policy := DefaultRetryPolicy()
	if retries > 0 {
		policy.Attempts = uint(retries)
	}
	return NewGuard(NewRateLimiter(rps, 1), policy, r.logger)
}

func usable(enabled bool, typ, apiKey string) bool {
	return enabled && (apiKey != "" || typ == MockName)
}

func llmKey(name string) string { return "llm:" + name }
func ttsKey(name string) string { return "tts:" + name }

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case OpenAIName:
		return NewOpenAIChatClient(OpenAIChatConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			RateLimit:  cfg.RateLimit,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout,
			BaseURL:    cfg.BaseURL,
		})
	case MockName:
		return NewMockClient()
	default:
		return nil
	}
}

// createTTSProvider creates a TTS provider based on provider type.
func createTTSProvider(cfg TTSProviderConfig) TTSProvider {
	switch cfg.Type {
	case OpenAIName:
		return NewOpenAITTSClient(OpenAITTSConfig{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			Voice:        cfg.Voice,
			Speed:        cfg.Speed,
			Instructions: cfg.Instructions,
			RateLimit:    cfg.RateLimit,
			MaxRetries:   cfg.MaxRetries,
			Timeout:      cfg.Timeout,
			BaseURL:      cfg.BaseURL,
		})
	case MockName:
		return NewMockTTS()
	default:
		return nil
	}
}
