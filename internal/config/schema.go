package config

import "strings"

// Config holds bookvoice configuration.
// Stored at: ./config.yaml or ~/.bookvoice/config.yaml
type Config struct {
	Providers ProvidersCfg `mapstructure:"providers" yaml:"providers"`
	Defaults  DefaultsCfg  `mapstructure:"defaults" yaml:"defaults"`
	Planner   PlannerCfg   `mapstructure:"planner" yaml:"planner"`
	Audio     AudioCfg     `mapstructure:"audio" yaml:"audio"`
	Prompts   PromptsCfg   `mapstructure:"prompts" yaml:"prompts"`
	LogLevel  string       `mapstructure:"log_level" yaml:"log_level"` // debug, info, warn, error
}

// ProvidersCfg lists the configured providers by name.
type ProvidersCfg struct {
	LLM map[string]LLMProviderCfg `mapstructure:"llm" yaml:"llm"`
	TTS map[string]TTSProviderCfg `mapstructure:"tts" yaml:"tts"`
}

// LLMProviderCfg configures an LLM provider used for translate and rewrite.
type LLMProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type"`                   // "openai", "mock"
	Model          string  `mapstructure:"model" yaml:"model"`                 // Model name
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`             // API key (supports ${ENV_VAR} syntax)
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url,omitempty"` // Optional API endpoint override
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"`       // Requests per second
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
}

// TTSProviderCfg configures a TTS provider.
type TTSProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type"` // "openai", "mock"
	Model          string  `mapstructure:"model" yaml:"model"`
	Voice          string  `mapstructure:"voice" yaml:"voice"`
	Speed          float64 `mapstructure:"speed" yaml:"speed"`
	Instructions   string  `mapstructure:"instructions" yaml:"instructions,omitempty"` // gpt-4o-mini-tts only
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selections and run settings.
type DefaultsCfg struct {
	TranslateProvider string `mapstructure:"translate_provider" yaml:"translate_provider"`
	RewriteProvider   string `mapstructure:"rewrite_provider" yaml:"rewrite_provider"`
	TTSProvider       string `mapstructure:"tts_provider" yaml:"tts_provider"`
	RewriteBypass     bool   `mapstructure:"rewrite_bypass" yaml:"rewrite_bypass"` // Skip the LLM rewrite pass
	Language          string `mapstructure:"language" yaml:"language"`             // Target language (BCP 47)
	Workers           int    `mapstructure:"workers" yaml:"workers"`               // Concurrent provider calls per stage
}

// PlannerCfg sizes narration segments.
type PlannerCfg struct {
	BudgetChars         int     `mapstructure:"budget_chars" yaml:"budget_chars"`
	CeilingChars        int     `mapstructure:"ceiling_chars" yaml:"ceiling_chars"`
	BackwardWindowRatio float64 `mapstructure:"backward_window_ratio" yaml:"backward_window_ratio"`
	ForwardMarginRatio  float64 `mapstructure:"forward_margin_ratio" yaml:"forward_margin_ratio"`
}

// AudioCfg controls synthesized output and the encoder toolchain.
type AudioCfg struct {
	Format           string `mapstructure:"format" yaml:"format"`                       // Part format requested from TTS
	PackageFormat    string `mapstructure:"package_format" yaml:"package_format"`       // none, mp3, m4a, wav
	PackageNumbering string `mapstructure:"package_numbering" yaml:"package_numbering"` // source, sequential
	Encoder          string `mapstructure:"encoder" yaml:"encoder"`                     // auto, ffmpeg, native
	FFmpegPath       string `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path,omitempty"`
	FFprobePath      string `mapstructure:"ffprobe_path" yaml:"ffprobe_path,omitempty"`
}

// PackagingEnabled reports whether per-chapter packaging runs.
func (a AudioCfg) PackagingEnabled() bool {
	f := strings.ToLower(strings.TrimSpace(a.PackageFormat))
	return f != "" && f != "none"
}

// PromptsCfg locates prompt overrides.
type PromptsCfg struct {
	Dir string `mapstructure:"dir" yaml:"dir,omitempty"` // <dir>/<key>.tmpl replaces an embedded prompt
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: ProvidersCfg{
			LLM: map[string]LLMProviderCfg{
				"openai": {
					Type:           "openai",
					Model:          "gpt-4.1-mini",
					APIKey:         "${OPENAI_API_KEY}",
					RateLimit:      5.0,
					MaxRetries:     3,
					TimeoutSeconds: 120,
					Enabled:        true,
				},
				"mock": {
					Type:    "mock",
					Model:   "mock",
					Enabled: true,
				},
			},
			TTS: map[string]TTSProviderCfg{
				"openai": {
					Type:           "openai",
					Model:          "gpt-4o-mini-tts",
					Voice:          "echo",
					Speed:          1.0,
					APIKey:         "${OPENAI_API_KEY}",
					RateLimit:      3.0,
					MaxRetries:     3,
					TimeoutSeconds: 300,
					Enabled:        true,
				},
				"mock": {
					Type:    "mock",
					Model:   "mock",
					Voice:   "mock",
					Enabled: true,
				},
			},
		},
		Defaults: DefaultsCfg{
			TranslateProvider: "openai",
			RewriteProvider:   "openai",
			TTSProvider:       "openai",
			Language:          "cs",
			Workers:           4,
		},
		Planner: PlannerCfg{
			BudgetChars:         6500,
			CeilingChars:        9300,
			BackwardWindowRatio: 0.4,
			ForwardMarginRatio:  0.2,
		},
		Audio: AudioCfg{
			Format:           "wav",
			PackageFormat:    "none",
			PackageNumbering: "source",
			Encoder:          "auto",
		},
		LogLevel: "info",
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.Providers.LLM[name]
	return cfg, ok
}

// GetTTSProvider returns a TTS provider config by name.
func (c *Config) GetTTSProvider(name string) (TTSProviderCfg, bool) {
	cfg, ok := c.Providers.TTS[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.Providers.LLM {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// EnabledTTSProviders returns all enabled TTS providers.
func (c *Config) EnabledTTSProviders() map[string]TTSProviderCfg {
	result := make(map[string]TTSProviderCfg)
	for name, cfg := range c.Providers.TTS {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
