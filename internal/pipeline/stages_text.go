package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackzampolin/bookvoice/internal/artifacts"
	"github.com/jackzampolin/bookvoice/internal/chapters"
	"github.com/jackzampolin/bookvoice/internal/clean"
	"github.com/jackzampolin/bookvoice/internal/segment"
	"github.com/jackzampolin/bookvoice/internal/structure"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// Stage names without an artifact class.
const (
	StageExtract = "extract"
	StageClean   = "clean"
)

// ExtraDropCapMerges counts drop-cap initials merged by the cleaner.
const ExtraDropCapMerges = "drop_cap_merges_count"

// NewStageRegistry registers the run stages. The package stage is only
// present when packaging is enabled.
func NewStageRegistry(packaging bool) (*Registry, error) {
	last := string(artifacts.ClassMerge)
	stages := []Stage{
		&stage{name: StageExtract, desc: "Extract text and outline from the source file", execute: executeExtract},
		&stage{name: StageClean, deps: []string{StageExtract}, desc: "Apply text cleanup rules", execute: executeClean},
		&stage{name: string(artifacts.ClassStructure), deps: []string{StageClean}, class: artifacts.ClassStructure,
			desc: "Derive chapters and subchapters", load: loadStructure, execute: executeStructure},
		&stage{name: string(artifacts.ClassChunk), deps: []string{string(artifacts.ClassStructure)}, class: artifacts.ClassChunk,
			desc: "Plan narration segments", load: loadChunks, execute: executeChunks},
		&stage{name: string(artifacts.ClassTranslate), deps: []string{string(artifacts.ClassChunk)}, class: artifacts.ClassTranslate,
			desc: "Translate chunks", load: loadTranslations, execute: executeTranslate},
		&stage{name: string(artifacts.ClassRewrite), deps: []string{string(artifacts.ClassTranslate)}, class: artifacts.ClassRewrite,
			desc: "Rewrite translations for narration", load: loadRewrites, execute: executeRewrite},
		&stage{name: string(artifacts.ClassSynthesize), deps: []string{string(artifacts.ClassRewrite)}, class: artifacts.ClassSynthesize,
			desc: "Synthesize audio parts", load: loadParts, execute: executeSynthesize},
		&stage{name: string(artifacts.ClassMerge), deps: []string{string(artifacts.ClassSynthesize)}, class: artifacts.ClassMerge,
			desc: "Merge parts into one audio file", load: loadMerged, execute: executeMerge},
	}
	if packaging {
		stages = append(stages, &stage{name: string(artifacts.ClassPackage), deps: []string{last}, class: artifacts.ClassPackage,
			desc: "Package per-chapter audio files", load: loadPackage, execute: executePackage})
		last = string(artifacts.ClassPackage)
	}
	stages = append(stages, &stage{name: string(artifacts.ClassManifest), deps: []string{last}, class: artifacts.ClassManifest,
		desc: "Finalize the run manifest", execute: executeManifest})

	r := NewRegistry()
	for _, s := range stages {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, r.Validate()
}

func executeExtract(ctx context.Context, run *Run) error {
	doc, err := run.factory.Extractor.Extract(ctx, run.Settings.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", run.Settings.SourcePath, err)
	}
	run.doc = doc
	raw, _ := doc.Text()
	if err := run.Store.WriteText(artifacts.RawTextPath, raw); err != nil {
		return err
	}
	run.logger.Info("extracted source",
		"sections", len(doc.Sections),
		"outline_entries", len(doc.Outline),
		"chars", doc.CharCount())
	return run.record(StageExtract, func(m *types.RunManifest) {
		m.Book.Title = doc.Title
		m.Book.Author = doc.Author
		m.Artifacts.RawText = artifacts.RawTextPath
	})
}

func executeClean(_ context.Context, run *Run) error {
	cleaned, merges := cleanDocument(run.factory.Cleaner, run.doc)
	run.cleanDoc = cleaned

	text, _ := cleaned.Text()
	if strings.TrimSpace(text) == "" {
		return types.NewStageError(types.KindStructure, StageClean, "source has no text after cleaning").
			WithHint("scanned PDFs need OCR before they can be narrated").
			WithPaths(run.Settings.SourcePath)
	}
	if err := run.Store.WriteText(artifacts.CleanTextPath, text); err != nil {
		return err
	}
	return run.record(StageClean, func(m *types.RunManifest) {
		m.Artifacts.CleanText = artifacts.CleanTextPath
		m.Extra[ExtraDropCapMerges] = merges
	})
}

// cleanDocument cleans each section on its own so outline section indexes
// stay valid.
func cleanDocument(c *clean.Cleaner, doc *types.Document) (*types.Document, int) {
	cleaned := *doc
	cleaned.Sections = make([]string, len(doc.Sections))
	merges := 0
	for i, s := range doc.Sections {
		rep := c.CleanWithReport(s)
		cleaned.Sections[i] = rep.Text
		merges += rep.DropCapMerges
	}
	return &cleaned, merges
}

func executeStructure(_ context.Context, run *Run) error {
	art, plan, err := buildStructure(run.factory, run.cleanDoc)
	if err != nil {
		return err
	}
	run.fallbackPlan = plan
	run.structure = art
	if err := artifacts.Save(run.Store, artifacts.ClassStructure, art); err != nil {
		return err
	}
	return run.record(string(artifacts.ClassStructure), func(m *types.RunManifest) {
		m.Artifacts.Structure = artifacts.StructurePath
		m.Extra[types.ExtraStructureSource] = art.Metadata.Source
		m.Extra[types.ExtraStructureFallback] = art.Metadata.FallbackReason
	})
}

// buildStructure normalizes a cleaned document. When no structure can be
// derived the whole text becomes one chapter planned by the chunker.
func buildStructure(f *Factory, doc *types.Document) (*artifacts.StructureArtifact, *segment.Plan, error) {
	res, err := f.Normalizer.Normalize(doc)
	if err == nil {
		return &artifacts.StructureArtifact{
			Units: res.Units,
			Metadata: artifacts.StructureMetadata{
				Source:         res.MetadataSource(),
				FallbackReason: res.FallbackReason,
				FallbackDetail: res.FallbackDetail,
				UnitCount:      len(res.Units),
				ChapterCount:   res.ChapterCount(),
			},
		}, nil, nil
	}
	if !errors.Is(err, types.ErrStructure) {
		return nil, nil, err
	}

	text, _ := doc.Text()
	if strings.TrimSpace(text) == "" {
		return nil, nil, err
	}
	plan, unit, err := f.Planner.PlanFallback(text, doc.Title)
	if err != nil {
		return nil, nil, err
	}
	f.Logger.Warn("no structure found, chunking whole document", "fallback_reason", res.FallbackReason)
	return &artifacts.StructureArtifact{
		Units: []types.StructuralUnit{unit},
		Metadata: artifacts.StructureMetadata{
			Source:          structure.MetadataSourceText,
			FallbackReason:  res.FallbackReason,
			FallbackDetail:  res.FallbackDetail,
			UnitCount:       1,
			ChapterCount:    1,
			ChunkerFallback: true,
		},
	}, plan, nil
}

func loadStructure(_ context.Context, run *Run) error {
	a, err := artifacts.Load[artifacts.StructureArtifact](run.Store, artifacts.ClassStructure)
	if err != nil {
		return err
	}
	run.structure = a
	return nil
}

func executeChunks(_ context.Context, run *Run) error {
	art, err := planChunks(run.factory, run.structure, run.fallbackPlan, run.Settings.ChapterSelection)
	if err != nil {
		return err
	}
	run.chunks = art
	if err := artifacts.Save(run.Store, artifacts.ClassChunk, art); err != nil {
		return err
	}
	run.logger.Info("planned chunks",
		"chunks", len(art.Chunks),
		"chapters", art.Metadata.ChapterScope.Label,
		"forced_splits", art.Metadata.Planner.ForcedSplitCount)
	return run.record(string(artifacts.ClassChunk), func(m *types.RunManifest) {
		m.Artifacts.Chunks = artifacts.ChunksPath
		m.Extra[types.ExtraChapterScope] = art.Metadata.ChapterScope
		m.Extra[types.ExtraForcedSplitCount] = art.Metadata.Planner.ForcedSplitCount
		m.Extra[types.ExtraChapterPartMap] = segment.ChapterPartMap(art.Chunks)
	})
}

// planChunks applies the chapter selection and plans segments.
func planChunks(f *Factory, s *artifacts.StructureArtifact, fallback *segment.Plan, selection string) (*artifacts.ChunksArtifact, error) {
	scope, err := chapters.Resolve(selection, chapters.Indices(s.Units))
	if err != nil {
		return nil, err
	}

	plan := fallback
	switch {
	case s.Metadata.ChunkerFallback && plan == nil:
		u := s.Units[0]
		plan, _, err = f.Planner.PlanFallback(u.Text, u.ChapterTitle)
	case !s.Metadata.ChunkerFallback:
		plan, err = f.Planner.Plan(chapters.Filter(s.Units, scope))
	}
	if err != nil {
		return nil, err
	}

	return &artifacts.ChunksArtifact{
		Chunks: segment.ToChunks(plan),
		Metadata: artifacts.ChunksMetadata{
			Planner:      plan.Metadata(),
			ChapterScope: scope,
		},
	}, nil
}

func loadChunks(_ context.Context, run *Run) error {
	a, err := artifacts.Load[artifacts.ChunksArtifact](run.Store, artifacts.ClassChunk)
	if err != nil {
		return err
	}
	run.chunks = a
	return nil
}
