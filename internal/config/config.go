package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/bookvoice/internal/providers"
)

// EnvPrefix prefixes environment overrides, e.g. BOOKVOICE_DEFAULTS_LANGUAGE.
const EnvPrefix = "BOOKVOICE"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
// An empty cfgFile searches ./config.yaml then ~/.bookvoice/config.yaml.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    slog.Default(),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	defaults := DefaultConfig()

	// Leaf keys so a config file can override single provider fields.
	for name, p := range defaults.Providers.LLM {
		prefix := "providers.llm." + name + "."
		v.SetDefault(prefix+"type", p.Type)
		v.SetDefault(prefix+"model", p.Model)
		v.SetDefault(prefix+"api_key", p.APIKey)
		v.SetDefault(prefix+"rate_limit", p.RateLimit)
		v.SetDefault(prefix+"max_retries", p.MaxRetries)
		v.SetDefault(prefix+"timeout_seconds", p.TimeoutSeconds)
		v.SetDefault(prefix+"enabled", p.Enabled)
	}
	for name, p := range defaults.Providers.TTS {
		prefix := "providers.tts." + name + "."
		v.SetDefault(prefix+"type", p.Type)
		v.SetDefault(prefix+"model", p.Model)
		v.SetDefault(prefix+"voice", p.Voice)
		v.SetDefault(prefix+"speed", p.Speed)
		v.SetDefault(prefix+"api_key", p.APIKey)
		v.SetDefault(prefix+"rate_limit", p.RateLimit)
		v.SetDefault(prefix+"max_retries", p.MaxRetries)
		v.SetDefault(prefix+"timeout_seconds", p.TimeoutSeconds)
		v.SetDefault(prefix+"enabled", p.Enabled)
	}
	v.SetDefault("defaults.translate_provider", defaults.Defaults.TranslateProvider)
	v.SetDefault("defaults.rewrite_provider", defaults.Defaults.RewriteProvider)
	v.SetDefault("defaults.tts_provider", defaults.Defaults.TTSProvider)
	v.SetDefault("defaults.rewrite_bypass", defaults.Defaults.RewriteBypass)
	v.SetDefault("defaults.language", defaults.Defaults.Language)
	v.SetDefault("defaults.workers", defaults.Defaults.Workers)
	v.SetDefault("planner.budget_chars", defaults.Planner.BudgetChars)
	v.SetDefault("planner.ceiling_chars", defaults.Planner.CeilingChars)
	v.SetDefault("planner.backward_window_ratio", defaults.Planner.BackwardWindowRatio)
	v.SetDefault("planner.forward_margin_ratio", defaults.Planner.ForwardMarginRatio)
	v.SetDefault("audio.format", defaults.Audio.Format)
	v.SetDefault("audio.package_format", defaults.Audio.PackageFormat)
	v.SetDefault("audio.package_numbering", defaults.Audio.PackageNumbering)
	v.SetDefault("audio.encoder", defaults.Audio.Encoder)
	v.SetDefault("audio.ffmpeg_path", "")
	v.SetDefault("audio.ffprobe_path", "")
	v.SetDefault("prompts.dir", "")
	v.SetDefault("log_level", defaults.LogLevel)

	// Environment variables with BOOKVOICE_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.bookvoice")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// SetLogger sets the logger used for reload events.
func (cm *Manager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// ConfigFile returns the config file in use, or "" when running on defaults.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// BindFlag makes a command-line flag override key when the flag is set.
// Call Refresh after binding to apply flags to Get.
func (cm *Manager) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("flag for %s is not defined", key)
	}
	return cm.v.BindPFlag(key, flag)
}

// Refresh re-reads viper state (defaults, file, env, bound flags).
func (cm *Manager) Refresh() (*Config, error) {
	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.mu.Lock()
	cm.config = cfg
	cm.mu.Unlock()
	return cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			cm.mu.RLock()
			cm.logger.Warn("ignoring invalid config change", "file", e.Name, "error", err)
			cm.mu.RUnlock()
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		logger := cm.logger
		cm.mu.Unlock()

		logger.Info("config reloaded", "file", e.Name)
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		LLMProviders: make(map[string]providers.LLMProviderConfig),
		TTSProviders: make(map[string]providers.TTSProviderConfig),
	}

	for name, llm := range c.Providers.LLM {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:       llm.Type,
			Model:      llm.Model,
			APIKey:     ResolveEnvVars(llm.APIKey),
			BaseURL:    llm.BaseURL,
			RateLimit:  llm.RateLimit,
			MaxRetries: llm.MaxRetries,
			Timeout:    time.Duration(llm.TimeoutSeconds) * time.Second,
			Enabled:    llm.Enabled,
		}
	}

	for name, tts := range c.Providers.TTS {
		cfg.TTSProviders[name] = providers.TTSProviderConfig{
			Type:         tts.Type,
			Model:        tts.Model,
			Voice:        tts.Voice,
			Speed:        tts.Speed,
			Instructions: tts.Instructions,
			APIKey:       ResolveEnvVars(tts.APIKey),
			BaseURL:      tts.BaseURL,
			RateLimit:    tts.RateLimit,
			MaxRetries:   tts.MaxRetries,
			Timeout:      time.Duration(tts.TimeoutSeconds) * time.Second,
			Enabled:      tts.Enabled,
		}
	}

	return cfg
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := []byte(`# bookvoice configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENAI_API_KEY=xxx
# Any key can be overridden from the environment, e.g. BOOKVOICE_DEFAULTS_LANGUAGE=de
# The "mock" providers run offline and produce silent audio.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
