package artifacts

import (
	"github.com/jackzampolin/bookvoice/internal/chapters"
	"github.com/jackzampolin/bookvoice/internal/segment"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// StructureArtifact is text/structure.json.
type StructureArtifact struct {
	Units    []types.StructuralUnit `json:"units" jsonschema:"required"`
	Metadata StructureMetadata      `json:"metadata" jsonschema:"required"`
}

// StructureMetadata records how units were derived.
type StructureMetadata struct {
	Source          string `json:"source" jsonschema:"required,enum=outline,enum=text_heuristic"`
	FallbackReason  string `json:"fallback_reason"`
	FallbackDetail  string `json:"fallback_detail,omitempty"`
	UnitCount       int    `json:"unit_count" jsonschema:"required"`
	ChapterCount    int    `json:"chapter_count" jsonschema:"required"`
	ChunkerFallback bool   `json:"chunker_fallback"`
}

// ChunksArtifact is text/chunks.json.
type ChunksArtifact struct {
	Chunks   []types.Chunk  `json:"chunks" jsonschema:"required"`
	Metadata ChunksMetadata `json:"metadata" jsonschema:"required"`
}

// ChunksMetadata records planner settings and chapter scope.
type ChunksMetadata struct {
	Planner      segment.PlannerMetadata `json:"planner" jsonschema:"required"`
	ChapterScope chapters.Scope          `json:"chapter_scope" jsonschema:"required"`
}

// ProviderMetadata names the provider that produced a stage.
type ProviderMetadata struct {
	Provider string `json:"provider" jsonschema:"required"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
	Bypass   bool   `json:"bypass,omitempty"`
}

// TranslationsArtifact is text/translations.json.
type TranslationsArtifact struct {
	Translations []types.Translation `json:"translations" jsonschema:"required"`
	Metadata     ProviderMetadata    `json:"metadata" jsonschema:"required"`
}

// RewritesArtifact is text/rewrites.json.
type RewritesArtifact struct {
	Rewrites []types.Rewrite  `json:"rewrites" jsonschema:"required"`
	Metadata ProviderMetadata `json:"metadata" jsonschema:"required"`
}

// AudioMetadata describes synthesis settings.
type AudioMetadata struct {
	Provider string `json:"provider" jsonschema:"required"`
	Model    string `json:"model,omitempty"`
	Voice    string `json:"voice,omitempty"`
	Format   string `json:"format" jsonschema:"required"`
}

// AudioPartsArtifact is audio/parts.json.
type AudioPartsArtifact struct {
	Parts          []types.AudioPart   `json:"parts" jsonschema:"required"`
	ChapterPartMap map[string][]string `json:"chapter_part_map" jsonschema:"required"`
	Metadata       AudioMetadata       `json:"metadata" jsonschema:"required"`
}

// MergedArtifact is audio/merged.json.
type MergedArtifact struct {
	Path            string   `json:"path" jsonschema:"required"`
	Format          string   `json:"format" jsonschema:"required"`
	PartIDs         []string `json:"part_ids" jsonschema:"required"`
	DurationSeconds float64  `json:"duration_seconds"`
}

// PackagedChapter is one per-chapter output file.
type PackagedChapter struct {
	ChapterIndex  int      `json:"chapter_index" jsonschema:"required,minimum=1"`
	ChapterNumber int      `json:"chapter_number" jsonschema:"required,minimum=1"`
	Title         string   `json:"title" jsonschema:"required"`
	Path          string   `json:"path" jsonschema:"required"`
	PartIDs       []string `json:"part_ids" jsonschema:"required"`
}

// PackageArtifact is audio/package.json.
type PackageArtifact struct {
	Format    string            `json:"format" jsonschema:"required"`
	Numbering string            `json:"numbering" jsonschema:"required,enum=source,enum=sequential"`
	Chapters  []PackagedChapter `json:"chapters" jsonschema:"required"`
}
