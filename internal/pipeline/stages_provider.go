package pipeline

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/bookvoice/internal/artifacts"
	"github.com/jackzampolin/bookvoice/internal/audio"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// fanOut runs fn over items with at most workers calls in flight. Results
// are stored by input index, so output order equals input order.
func fanOut[T, R any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, item := range items {
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func executeTranslate(ctx context.Context, run *Run) error {
	trs, err := fanOut(ctx, run.factory.Workers, run.chunks.Chunks, func(ctx context.Context, c types.Chunk) (types.Translation, error) {
		tr, err := run.factory.Translator.Translate(ctx, c)
		if err == nil {
			run.logger.Debug("translated chunk", "chapter", c.ChapterIndex, "part_id", c.PartID)
		}
		return tr, err
	})
	if err != nil {
		return err
	}
	run.translations = &artifacts.TranslationsArtifact{
		Translations: trs,
		Metadata: artifacts.ProviderMetadata{
			Provider: run.Settings.TranslateProvider,
			Model:    run.Settings.TranslateModel,
			Language: run.Settings.Language,
		},
	}
	if err := artifacts.Save(run.Store, artifacts.ClassTranslate, run.translations); err != nil {
		return err
	}
	return run.record(string(artifacts.ClassTranslate), func(m *types.RunManifest) {
		m.Artifacts.Translations = artifacts.TranslationsPath
		recordCacheStats(run, m)
	})
}

// recordCacheStats stores the response cache counters of this invocation.
func recordCacheStats(run *Run, m *types.RunManifest) {
	if run.factory.Cache == nil {
		return
	}
	hits, misses := run.factory.Cache.Stats()
	m.Extra[types.ExtraProviderCacheHits] = hits
	m.Extra[types.ExtraProviderCacheMisses] = misses
}

func loadTranslations(_ context.Context, run *Run) error {
	a, err := artifacts.Load[artifacts.TranslationsArtifact](run.Store, artifacts.ClassTranslate)
	if err != nil {
		return err
	}
	run.translations = a
	return nil
}

func executeRewrite(ctx context.Context, run *Run) error {
	rws, err := fanOut(ctx, run.factory.Workers, run.translations.Translations, func(ctx context.Context, tr types.Translation) (types.Rewrite, error) {
		rw, err := run.factory.Rewriter.Rewrite(ctx, tr)
		if err == nil {
			run.logger.Debug("rewrote chunk", "chapter", tr.Chunk.ChapterIndex, "part_id", tr.Chunk.PartID)
		}
		return rw, err
	})
	if err != nil {
		return err
	}
	run.rewrites = &artifacts.RewritesArtifact{
		Rewrites: rws,
		Metadata: artifacts.ProviderMetadata{
			Provider: run.Settings.RewriteProvider,
			Model:    run.Settings.RewriteModel,
			Language: run.Settings.Language,
			Bypass:   run.Settings.RewriteBypass,
		},
	}
	if err := artifacts.Save(run.Store, artifacts.ClassRewrite, run.rewrites); err != nil {
		return err
	}
	return run.record(string(artifacts.ClassRewrite), func(m *types.RunManifest) {
		m.Artifacts.Rewrites = artifacts.RewritesPath
		recordCacheStats(run, m)
	})
}

func loadRewrites(_ context.Context, run *Run) error {
	a, err := artifacts.Load[artifacts.RewritesArtifact](run.Store, artifacts.ClassRewrite)
	if err != nil {
		return err
	}
	run.rewrites = a
	return nil
}

func executeSynthesize(ctx context.Context, run *Run) error {
	parts, err := fanOut(ctx, run.factory.Workers, run.rewrites.Rewrites, func(ctx context.Context, rw types.Rewrite) (types.AudioPart, error) {
		return synthesizePart(ctx, run, rw)
	})
	if err != nil {
		return err
	}
	run.parts = &artifacts.AudioPartsArtifact{
		Parts:          parts,
		ChapterPartMap: partMap(parts),
		Metadata: artifacts.AudioMetadata{
			Provider: run.Settings.TTSProvider,
			Model:    run.Settings.TTSModel,
			Voice:    run.Settings.Voice,
			Format:   run.Settings.AudioFormat,
		},
	}
	if err := artifacts.Save(run.Store, artifacts.ClassSynthesize, run.parts); err != nil {
		return err
	}
	return run.record(string(artifacts.ClassSynthesize), func(m *types.RunManifest) {
		m.Artifacts.AudioParts = artifacts.AudioPartsPath
		m.Extra[types.ExtraChapterPartMap] = run.parts.ChapterPartMap
	})
}

func synthesizePart(ctx context.Context, run *Run, rw types.Rewrite) (types.AudioPart, error) {
	c := rw.Chunk()
	res, err := run.factory.Synthesizer.Synthesize(ctx, c, rw.RewrittenText)
	if err != nil {
		return types.AudioPart{}, err
	}
	ext := strings.ToLower(strings.TrimPrefix(res.Format, "."))
	if ext == "" {
		ext = run.Settings.AudioFormat
	}
	rel := artifacts.PartAudioPath(c.ChapterIndex, c.PartIndex, c.PartTitle, ext)
	if err := run.Store.WriteBytes(rel, res.Audio); err != nil {
		return types.AudioPart{}, err
	}

	duration := float64(res.DurationMS) / 1000
	if duration == 0 && ext == "wav" {
		if w, err := audio.ParseWAV(res.Audio); err == nil {
			duration = w.Duration()
		}
	}
	run.logger.Debug("synthesized part", "chapter", c.ChapterIndex, "part_id", c.PartID, "seconds", duration)
	return types.AudioPart{
		ChapterIndex:    c.ChapterIndex,
		ChunkIndex:      c.ChunkIndex,
		PartIndex:       c.PartIndex,
		PartTitle:       c.PartTitle,
		PartID:          c.PartID,
		Path:            rel,
		DurationSeconds: duration,
		Provider:        run.Settings.TTSProvider,
		Voice:           run.Settings.Voice,
		CostUSD:         res.CostUSD,
	}, nil
}

// partMap lists part IDs per chapter, keyed by chapter index.
func partMap(parts []types.AudioPart) map[string][]string {
	out := make(map[string][]string)
	for _, p := range parts {
		key := strconv.Itoa(p.ChapterIndex)
		out[key] = append(out[key], p.PartID)
	}
	return out
}

func loadParts(_ context.Context, run *Run) error {
	a, err := artifacts.Load[artifacts.AudioPartsArtifact](run.Store, artifacts.ClassSynthesize)
	if err != nil {
		return err
	}
	run.parts = a
	return nil
}

// partFiles returns absolute paths of parts in order.
func partFiles(run *Run, parts []types.AudioPart) []string {
	files := make([]string, len(parts))
	for i, p := range parts {
		files[i] = run.Store.Path(p.Path)
	}
	return files
}

func partExt(parts []types.AudioPart) string {
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimPrefix(filepath.Ext(parts[0].Path), ".")
}
