package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackzampolin/bookvoice/internal/artifacts"
	"github.com/jackzampolin/bookvoice/internal/audio"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// Packaged chapter numbering modes.
const (
	NumberingSource     = "source"
	NumberingSequential = "sequential"
)

func executeMerge(ctx context.Context, run *Run) error {
	parts := run.parts.Parts
	if len(parts) == 0 {
		return fmt.Errorf("no audio parts to merge")
	}
	rel := artifacts.MergedAudioPath(partExt(parts))
	out := run.Store.Path(rel)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := run.factory.Encoder.Merge(ctx, partFiles(run, parts), out); err != nil {
		return fmt.Errorf("failed to merge audio with %s: %w", run.factory.Encoder.Name(), err)
	}

	duration, err := run.factory.Encoder.Duration(ctx, out)
	if err != nil {
		duration = 0
		for _, p := range parts {
			duration += p.DurationSeconds
		}
	}

	ids := make([]string, len(parts))
	for i, p := range parts {
		ids[i] = p.PartID
	}
	run.merged = &artifacts.MergedArtifact{
		Path:            rel,
		Format:          partExt(parts),
		PartIDs:         ids,
		DurationSeconds: duration,
	}
	if err := artifacts.Save(run.Store, artifacts.ClassMerge, run.merged); err != nil {
		return err
	}
	run.logger.Info("merged audio", "path", rel, "parts", len(parts), "seconds", duration)
	return run.record(string(artifacts.ClassMerge), func(m *types.RunManifest) {
		m.Artifacts.Merged = artifacts.MergedPath
		m.Artifacts.MergedAudio = rel
	})
}

func loadMerged(_ context.Context, run *Run) error {
	a, err := artifacts.Load[artifacts.MergedArtifact](run.Store, artifacts.ClassMerge)
	if err != nil {
		return err
	}
	run.merged = a
	return nil
}

// chapterGroup is the ordered parts of one chapter.
type chapterGroup struct {
	index int
	title string
	parts []types.AudioPart
}

func groupByChapter(parts []types.AudioPart) []chapterGroup {
	var groups []chapterGroup
	for _, p := range parts {
		if n := len(groups); n > 0 && groups[n-1].index == p.ChapterIndex {
			groups[n-1].parts = append(groups[n-1].parts, p)
			continue
		}
		groups = append(groups, chapterGroup{index: p.ChapterIndex, title: p.PartTitle, parts: []types.AudioPart{p}})
	}
	return groups
}

func executePackage(ctx context.Context, run *Run) error {
	groups := groupByChapter(run.parts.Parts)
	titles := chapterTitles(run)
	format := run.Settings.PackageFormat
	numbering := run.Settings.PackageNumbering
	if numbering == "" {
		numbering = NumberingSource
	}

	pkg := &artifacts.PackageArtifact{
		Format:    format,
		Numbering: numbering,
		Chapters:  make([]artifacts.PackagedChapter, 0, len(groups)),
	}
	for i, g := range groups {
		number := g.index
		if numbering == NumberingSequential {
			number = i + 1
		}
		title := g.title
		if t, ok := titles[g.index]; ok && t != "" {
			title = t
		}
		rel := artifacts.ChapterAudioPath(number, title, format)
		out := run.Store.Path(rel)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		tags := audio.Tags{
			Title:      title,
			Album:      bookTitle(run),
			Track:      i + 1,
			TrackTotal: len(groups),
			Comment:    run.ID.RunID,
		}
		if err := run.factory.Encoder.Package(ctx, partFiles(run, g.parts), out, tags); err != nil {
			return fmt.Errorf("failed to package chapter %d: %w", g.index, err)
		}
		ids := make([]string, len(g.parts))
		for j, p := range g.parts {
			ids[j] = p.PartID
		}
		pkg.Chapters = append(pkg.Chapters, artifacts.PackagedChapter{
			ChapterIndex:  g.index,
			ChapterNumber: number,
			Title:         title,
			Path:          rel,
			PartIDs:       ids,
		})
		run.logger.Debug("packaged chapter", "chapter", g.index, "path", rel)
	}

	run.pkg = pkg
	if err := artifacts.Save(run.Store, artifacts.ClassPackage, pkg); err != nil {
		return err
	}
	return run.record(string(artifacts.ClassPackage), func(m *types.RunManifest) {
		m.Artifacts.Package = artifacts.PackagePath
	})
}

func loadPackage(_ context.Context, run *Run) error {
	a, err := artifacts.Load[artifacts.PackageArtifact](run.Store, artifacts.ClassPackage)
	if err != nil {
		return err
	}
	run.pkg = a
	return nil
}

// chapterTitles maps chapter index to title from the structure artifact.
func chapterTitles(run *Run) map[int]string {
	out := make(map[int]string)
	if run.structure == nil {
		return out
	}
	for _, c := range types.Chapters(run.structure.Units) {
		out[c.Index] = c.Title
	}
	return out
}

func bookTitle(run *Run) string {
	if run.doc != nil && run.doc.Title != "" {
		return run.doc.Title
	}
	if m, err := run.Manifest.Load(); err == nil && m.Book.Title != "" {
		return m.Book.Title
	}
	return filepath.Base(run.Settings.SourcePath)
}

func executeManifest(_ context.Context, run *Run) error {
	return run.record(string(artifacts.ClassManifest), func(m *types.RunManifest) {
		m.Extra[types.ExtraChapterPartMap] = run.parts.ChapterPartMap
		m.Extra[types.ExtraRunCompleted] = true
	})
}
