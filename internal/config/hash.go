package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackzampolin/bookvoice/internal/types"
)

// Supported values for audio settings.
var (
	PackageFormats   = []string{"none", "mp3", "m4a", "wav"}
	PackageNumbering = []string{"source", "sequential"}
	Encoders         = []string{"auto", "ffmpeg", "native"}
)

// Hash returns the hex SHA-256 of the canonical JSON encoding of settings.
// Struct fields encode in declaration order, so equal settings always
// produce equal hashes.
func Hash(settings types.RunSettings) (string, error) {
	data, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("failed to encode run settings: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Identity derives the run identity for settings. attemptID is left to the caller.
func Identity(settings types.RunSettings) (types.RunIdentity, error) {
	hash, err := Hash(settings)
	if err != nil {
		return types.RunIdentity{}, err
	}
	return types.RunIdentity{RunID: types.RunIDFor(hash), ConfigHash: hash}, nil
}

// RunSettings collects the content-affecting settings for one source file.
// Prompt hashes are filled in by the caller once prompts are resolved.
func (c *Config) RunSettings(sourcePath, chapterSelection string) types.RunSettings {
	translate, _ := c.GetLLMProvider(c.Defaults.TranslateProvider)
	rewrite, _ := c.GetLLMProvider(c.Defaults.RewriteProvider)
	tts, _ := c.GetTTSProvider(c.Defaults.TTSProvider)

	s := types.RunSettings{
		SourcePath:        sourcePath,
		Language:          c.Defaults.Language,
		TranslateProvider: c.Defaults.TranslateProvider,
		TranslateModel:    translate.Model,
		RewriteProvider:   c.Defaults.RewriteProvider,
		RewriteModel:      rewrite.Model,
		RewriteBypass:     c.Defaults.RewriteBypass,
		TTSProvider:       c.Defaults.TTSProvider,
		TTSModel:          tts.Model,
		Voice:             tts.Voice,
		BudgetChars:       c.Planner.BudgetChars,
		CeilingChars:      c.Planner.CeilingChars,
		BackwardWindow:    c.Planner.BackwardWindowRatio,
		ForwardMargin:     c.Planner.ForwardMarginRatio,
		ChapterSelection:  strings.TrimSpace(chapterSelection),
		AudioFormat:       strings.ToLower(c.Audio.Format),
		Packaging:         c.Audio.PackagingEnabled(),
	}
	if s.RewriteBypass {
		s.RewriteProvider = "bypass"
		s.RewriteModel = ""
	}
	if s.Packaging {
		s.PackageFormat = strings.ToLower(c.Audio.PackageFormat)
		s.PackageNumbering = c.Audio.PackageNumbering
	}
	return s
}

// Validate checks the configuration for values a run cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := c.Providers.LLM[c.Defaults.TranslateProvider]; !ok {
		errs = append(errs, fmt.Errorf("defaults.translate_provider %q is not configured under providers.llm", c.Defaults.TranslateProvider))
	}
	if !c.Defaults.RewriteBypass {
		if _, ok := c.Providers.LLM[c.Defaults.RewriteProvider]; !ok {
			errs = append(errs, fmt.Errorf("defaults.rewrite_provider %q is not configured under providers.llm", c.Defaults.RewriteProvider))
		}
	}
	if _, ok := c.Providers.TTS[c.Defaults.TTSProvider]; !ok {
		errs = append(errs, fmt.Errorf("defaults.tts_provider %q is not configured under providers.tts", c.Defaults.TTSProvider))
	}
	if strings.TrimSpace(c.Defaults.Language) == "" {
		errs = append(errs, errors.New("defaults.language must not be empty"))
	}
	if c.Defaults.Workers < 1 {
		errs = append(errs, fmt.Errorf("defaults.workers must be at least 1, got %d", c.Defaults.Workers))
	}
	if c.Planner.BudgetChars <= 0 {
		errs = append(errs, fmt.Errorf("planner.budget_chars must be a positive integer, got %d", c.Planner.BudgetChars))
	}
	if c.Planner.CeilingChars <= 0 {
		errs = append(errs, fmt.Errorf("planner.ceiling_chars must be a positive integer, got %d", c.Planner.CeilingChars))
	}
	if strings.TrimSpace(c.Audio.Format) == "" {
		errs = append(errs, errors.New("audio.format must not be empty"))
	}
	if !slices.Contains(PackageFormats, strings.ToLower(c.Audio.PackageFormat)) && c.Audio.PackageFormat != "" {
		errs = append(errs, fmt.Errorf("audio.package_format %q must be one of %s", c.Audio.PackageFormat, strings.Join(PackageFormats, ", ")))
	}
	if c.Audio.PackagingEnabled() && !slices.Contains(PackageNumbering, c.Audio.PackageNumbering) {
		errs = append(errs, fmt.Errorf("audio.package_numbering %q must be one of %s", c.Audio.PackageNumbering, strings.Join(PackageNumbering, ", ")))
	}
	if c.Audio.Encoder != "" && !slices.Contains(Encoders, c.Audio.Encoder) {
		errs = append(errs, fmt.Errorf("audio.encoder %q must be one of %s", c.Audio.Encoder, strings.Join(Encoders, ", ")))
	}
	return errors.Join(errs...)
}
