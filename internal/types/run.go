package types

import "time"

// RunIDPrefix prefixes every run identifier.
const RunIDPrefix = "run-"

// RunIDFor derives the run identifier from a config hash.
func RunIDFor(configHash string) string {
	if len(configHash) > 12 {
		configHash = configHash[:12]
	}
	return RunIDPrefix + configHash
}

// RunIdentity ties every stage call to one logical run.
// RunID and ConfigHash are stable across resumes; AttemptID changes per invocation.
type RunIdentity struct {
	RunID      string `json:"run_id"`
	ConfigHash string `json:"config_hash"`
	AttemptID  string `json:"attempt_id"`
}

// RunSettings holds every input that affects artifact content. Its canonical
// JSON encoding is hashed into the config hash, so timestamps and paths that
// only control where output lands do not belong here.
type RunSettings struct {
	SourcePath        string  `json:"source_path" jsonschema:"required"`
	Language          string  `json:"language" jsonschema:"required"`
	TranslateProvider string  `json:"translate_provider" jsonschema:"required"`
	TranslateModel    string  `json:"translate_model"`
	RewriteProvider   string  `json:"rewrite_provider" jsonschema:"required"`
	RewriteModel      string  `json:"rewrite_model"`
	RewriteBypass     bool    `json:"rewrite_bypass"`
	TTSProvider       string  `json:"tts_provider" jsonschema:"required"`
	TTSModel          string  `json:"tts_model"`
	Voice             string  `json:"voice"`
	BudgetChars       int     `json:"budget_chars" jsonschema:"required"`
	CeilingChars      int     `json:"ceiling_chars" jsonschema:"required"`
	BackwardWindow    float64 `json:"backward_window_ratio"`
	ForwardMargin     float64 `json:"forward_margin_ratio"`
	ChapterSelection  string  `json:"chapter_selection"`
	AudioFormat       string  `json:"audio_format" jsonschema:"required"`
	Packaging         bool    `json:"packaging"`
	PackageFormat     string  `json:"package_format,omitempty"`
	PackageNumbering  string  `json:"package_numbering,omitempty"`
	TranslatePrompt   string  `json:"translate_prompt_hash,omitempty"`
	RewritePrompt     string  `json:"rewrite_prompt_hash,omitempty"`
}

// BookMeta describes the source book.
type BookMeta struct {
	SourcePath string `json:"source_path" jsonschema:"required"`
	Title      string `json:"title"`
	Author     string `json:"author,omitempty"`
	Language   string `json:"language"`
}

// CostSummary aggregates provider cost estimates in USD.
type CostSummary struct {
	LLMUSD   float64 `json:"llm_usd"`
	TTSUSD   float64 `json:"tts_usd"`
	TotalUSD float64 `json:"total_usd"`
}

// Add accumulates costs and recomputes the total.
func (c *CostSummary) Add(llm, tts float64) {
	c.LLMUSD += llm
	c.TTSUSD += tts
	c.TotalUSD = c.LLMUSD + c.TTSUSD
}

// ArtifactPaths lists run-relative artifact locations recorded in the manifest.
type ArtifactPaths struct {
	RawText      string `json:"raw_text,omitempty"`
	CleanText    string `json:"clean_text,omitempty"`
	Structure    string `json:"structure,omitempty"`
	Chunks       string `json:"chunks,omitempty"`
	Translations string `json:"translations,omitempty"`
	Rewrites     string `json:"rewrites,omitempty"`
	AudioParts   string `json:"audio_parts,omitempty"`
	Merged       string `json:"merged,omitempty"`
	MergedAudio  string `json:"merged_audio,omitempty"`
	Package      string `json:"package,omitempty"`
}

// RunManifest is the persisted record of a run.
type RunManifest struct {
	RunID      string         `json:"run_id" jsonschema:"required"`
	ConfigHash string         `json:"config_hash" jsonschema:"required"`
	Settings   RunSettings    `json:"settings" jsonschema:"required"`
	Book       BookMeta       `json:"book" jsonschema:"required"`
	Artifacts  ArtifactPaths  `json:"artifacts" jsonschema:"required"`
	Costs      CostSummary    `json:"costs" jsonschema:"required"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Extra      map[string]any `json:"extra" jsonschema:"required"`
}

// Manifest extra keys.
const (
	ExtraRunCompleted        = "run_completed"
	ExtraLastStage           = "last_stage"
	ExtraAttemptID           = "attempt_id"
	ExtraChapterScope        = "chapter_scope"
	ExtraChapterPartMap      = "chapter_part_map"
	ExtraResumeStatus        = "resume_validation_status"
	ExtraResumeNextStage     = "resume_validation_next_stage"
	ExtraResumeIssueCount    = "resume_validation_issue_count"
	ExtraResumeDiagnostics   = "resume_validation_diagnostics"
	ExtraForcedSplitCount    = "forced_split_count"
	ExtraStructureSource     = "structure_source"
	ExtraStructureFallback   = "structure_fallback_reason"
	ExtraProviderCacheHits   = "provider_cache_hits"
	ExtraProviderCacheMisses = "provider_cache_misses"
)

// Completed reports whether the manifest marks the run as finished.
func (m *RunManifest) Completed() bool {
	if m == nil || m.Extra == nil {
		return false
	}
	done, _ := m.Extra[ExtraRunCompleted].(bool)
	return done
}
