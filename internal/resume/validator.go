package resume

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/jackzampolin/bookvoice/internal/artifacts"
	"github.com/jackzampolin/bookvoice/internal/manifest"
	"github.com/jackzampolin/bookvoice/internal/segment"
	"github.com/jackzampolin/bookvoice/internal/slug"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// Options controls which stages are expected.
type Options struct {
	// Packaging includes the package stage in the sequence.
	Packaging bool
	// Identity, when set, must match the manifest's run identity.
	Identity *types.RunIdentity
	Logger   *slog.Logger
}

// Stages returns the ordered stage sequence.
func Stages(packaging bool) []artifacts.Class {
	stages := []artifacts.Class{
		artifacts.ClassStructure,
		artifacts.ClassChunk,
		artifacts.ClassTranslate,
		artifacts.ClassRewrite,
		artifacts.ClassSynthesize,
		artifacts.ClassMerge,
	}
	if packaging {
		stages = append(stages, artifacts.ClassPackage)
	}
	return append(stages, artifacts.ClassManifest)
}

// Validator inspects one run directory.
type Validator struct {
	store  *artifacts.Store
	opts   Options
	logger *slog.Logger
}

// NewValidator creates a validator over a run's artifact store.
func NewValidator(store *artifacts.Store, opts Options) *Validator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{store: store, opts: opts, logger: logger}
}

// loaded holds every artifact that parsed, for cross-reference checks.
type loaded struct {
	structure    *artifacts.StructureArtifact
	chunks       *artifacts.ChunksArtifact
	translations *artifacts.TranslationsArtifact
	rewrites     *artifacts.RewritesArtifact
	parts        *artifacts.AudioPartsArtifact
	merged       *artifacts.MergedArtifact
	pkg          *artifacts.PackageArtifact
	manifest     *types.RunManifest
}

// finding is a cross-reference failure; related lists upstream paths involved.
type finding struct {
	detail  string
	related []string
}

// identityMismatch marks a manifest that belongs to another configuration.
type identityMismatch struct{ err error }

// Validate runs one read-only pass over the run's artifacts.
func (v *Validator) Validate() *Report {
	stages := Stages(v.opts.Packaging)
	st := &loaded{}
	r := &Report{Classes: make([]ClassReport, 0, len(stages))}
	findings := make(map[artifacts.Class]*finding)
	var mismatch *identityMismatch

	for _, stage := range stages {
		c := ClassReport{Stage: stage, Path: v.store.Path(stage.Path()), Status: StatusMissing}
		if v.store.Exists(stage.Path()) {
			f, idErr := v.check(stage, st)
			if idErr != nil {
				mismatch = idErr
			}
			if f == nil {
				c.Status = StatusConsistent
			} else {
				c.Status = StatusStale
				c.Detail = f.detail
				findings[stage] = f
			}
		}
		r.Classes = append(r.Classes, c)
	}

	v.classify(r, findings, mismatch)
	v.logger.Debug("resume validation complete",
		"classification", r.Classification,
		"next_stage", r.NextStage,
		"issues", len(r.Diagnostics))
	return r
}

func (v *Validator) classify(r *Report, findings map[artifacts.Class]*finding, mismatch *identityMismatch) {
	r.Classification = Recoverable
	r.NextStage = StageDone
	for _, c := range r.Classes {
		if c.Status != StatusConsistent {
			r.NextStage = string(c.Stage)
			break
		}
	}

	var remove []string
	for i, c := range r.Classes {
		switch c.Status {
		case StatusStale:
			if c.Stage == artifacts.ClassManifest {
				continue
			}
			f := findings[c.Stage]
			r.Classification = NonRecoverable
			r.addIssue("Stale artifact %s at %s: %s", c.Stage, c.Path, f.detail)
			for _, p := range f.related {
				r.addPath(p)
			}
			r.addPath(c.Path)
			remove = append(remove, c.Path)
			for _, d := range downstreamPresent(r.Classes[i+1:]) {
				r.addIssue("Stale downstream artifact %s at %s.", d.Stage, d.Path)
				r.addPath(d.Path)
				remove = append(remove, d.Path)
			}
		case StatusMissing:
			down := downstreamPresent(r.Classes[i+1:])
			if len(down) == 0 {
				continue
			}
			r.Classification = NonRecoverable
			r.addIssue("Mixed artifact state: missing %s at %s but downstream artifact exists.", c.Stage, c.Path)
			r.addPath(c.Path)
			for _, d := range down {
				r.addIssue("Orphaned downstream artifact %s at %s.", d.Stage, d.Path)
				r.addPath(d.Path)
				remove = append(remove, d.Path)
			}
		}
		if r.Classification == NonRecoverable {
			r.NextStage = string(c.Stage)
			break
		}
	}

	if mismatch != nil {
		r.Classification = NonRecoverable
		if r.NextStage == StageDone {
			r.NextStage = string(artifacts.ClassManifest)
		}
		path := v.store.Path(artifacts.ManifestPath)
		r.addIssue("Manifest at %s belongs to another run: %v", path, mismatch.err)
		r.addPath(path)
		remove = append(remove, v.store.Root())
	}

	if r.Classification == NonRecoverable {
		slices.Sort(remove)
		remove = slices.Compact(remove)
		r.Remediation = fmt.Sprintf("Manual cleanup required: delete %s, then rerun `bookvoice resume`.", strings.Join(remove, ", "))
	}
}

// downstreamPresent lists present artifacts after a stage. The manifest is
// rewritten after every stage, so it never counts as downstream output.
func downstreamPresent(classes []ClassReport) []ClassReport {
	var out []ClassReport
	for _, c := range classes {
		if c.Stage == artifacts.ClassManifest {
			continue
		}
		if c.Status != StatusMissing {
			out = append(out, c)
		}
	}
	return out
}

func (v *Validator) check(stage artifacts.Class, st *loaded) (*finding, *identityMismatch) {
	switch stage {
	case artifacts.ClassStructure:
		a, err := artifacts.Load[artifacts.StructureArtifact](v.store, stage)
		if err != nil {
			return malformed(err), nil
		}
		st.structure = a
		return checkStructure(a), nil

	case artifacts.ClassChunk:
		a, err := artifacts.Load[artifacts.ChunksArtifact](v.store, stage)
		if err != nil {
			return malformed(err), nil
		}
		st.chunks = a
		if st.structure == nil {
			return nil, nil
		}
		return v.related(checkChunks(a, st.structure), artifacts.StructurePath), nil

	case artifacts.ClassTranslate:
		a, err := artifacts.Load[artifacts.TranslationsArtifact](v.store, stage)
		if err != nil {
			return malformed(err), nil
		}
		st.translations = a
		if st.chunks == nil {
			return nil, nil
		}
		want := signatures(st.chunks.Chunks, types.Chunk.Signature)
		got := signatures(a.Translations, func(t types.Translation) string { return t.Chunk.Signature() })
		return v.related(compareSignatures("chunk/translation", want, got), artifacts.ChunksPath), nil

	case artifacts.ClassRewrite:
		a, err := artifacts.Load[artifacts.RewritesArtifact](v.store, stage)
		if err != nil {
			return malformed(err), nil
		}
		st.rewrites = a
		if st.translations == nil {
			return nil, nil
		}
		want := signatures(st.translations.Translations, func(t types.Translation) string { return t.Chunk.Signature() })
		got := signatures(a.Rewrites, func(r types.Rewrite) string { return r.Chunk().Signature() })
		return v.related(compareSignatures("translation/rewrite", want, got), artifacts.TranslationsPath), nil

	case artifacts.ClassSynthesize:
		a, err := artifacts.Load[artifacts.AudioPartsArtifact](v.store, stage)
		if err != nil {
			return malformed(err), nil
		}
		st.parts = a
		if f := v.checkAudioFiles(a); f != nil {
			return f, nil
		}
		if st.rewrites == nil {
			return nil, nil
		}
		want := signatures(st.rewrites.Rewrites, func(r types.Rewrite) string { return r.Chunk().Signature() })
		got := signatures(a.Parts, types.AudioPart.Signature)
		return v.related(compareSignatures("rewrite/audio", want, got), artifacts.RewritesPath), nil

	case artifacts.ClassMerge:
		a, err := artifacts.Load[artifacts.MergedArtifact](v.store, stage)
		if err != nil {
			return malformed(err), nil
		}
		st.merged = a
		if !v.store.Exists(a.Path) {
			return &finding{detail: fmt.Sprintf("merged audio %s is missing", v.store.Path(a.Path))}, nil
		}
		if st.parts == nil {
			return nil, nil
		}
		want := signatures(st.parts.Parts, func(p types.AudioPart) string { return p.PartID })
		if !slices.Equal(want, a.PartIDs) {
			return v.related(&finding{detail: fmt.Sprintf("merged part ids (%d) do not match synthesized parts (%d)", len(a.PartIDs), len(want))}, artifacts.AudioPartsPath), nil
		}
		return nil, nil

	case artifacts.ClassPackage:
		a, err := artifacts.Load[artifacts.PackageArtifact](v.store, stage)
		if err != nil {
			return malformed(err), nil
		}
		st.pkg = a
		for _, ch := range a.Chapters {
			if !v.store.Exists(ch.Path) {
				return &finding{detail: fmt.Sprintf("packaged chapter %s is missing", v.store.Path(ch.Path))}, nil
			}
		}
		if st.parts == nil {
			return nil, nil
		}
		return v.related(checkPackage(a, st.parts), artifacts.AudioPartsPath), nil

	case artifacts.ClassManifest:
		m, err := artifacts.Load[types.RunManifest](v.store, stage)
		if err != nil {
			return malformed(err), nil
		}
		st.manifest = m
		if v.opts.Identity != nil {
			if err := manifest.CheckIdentity(m, *v.opts.Identity); err != nil {
				return &finding{detail: err.Error()}, &identityMismatch{err: err}
			}
		} else if m.RunID != types.RunIDFor(m.ConfigHash) {
			err := fmt.Errorf("run_id %s is not derived from config hash", m.RunID)
			return &finding{detail: err.Error()}, &identityMismatch{err: err}
		}
		if !m.Completed() {
			return &finding{detail: "run not completed"}, nil
		}
		return nil, nil
	}
	return &finding{detail: "unknown stage"}, nil
}

func (v *Validator) related(f *finding, upstream string) *finding {
	if f == nil {
		return nil
	}
	f.related = append(f.related, v.store.Path(upstream))
	return f
}

func malformed(err error) *finding {
	return &finding{detail: fmt.Sprintf("malformed payload: %v", err)}
}

func signatures[T any](items []T, sig func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = sig(item)
	}
	return out
}

func compareSignatures(label string, want, got []string) *finding {
	if slices.Equal(want, got) {
		return nil
	}
	if len(want) != len(got) {
		return &finding{detail: fmt.Sprintf("%s count mismatch (%d upstream, %d here)", label, len(want), len(got))}
	}
	for i := range want {
		if want[i] != got[i] {
			return &finding{detail: fmt.Sprintf("%s order mismatch at position %d (%s upstream, %s here)", label, i, want[i], got[i])}
		}
	}
	return nil
}

func checkStructure(a *artifacts.StructureArtifact) *finding {
	if a.Metadata.UnitCount != len(a.Units) {
		return &finding{detail: fmt.Sprintf("metadata unit_count %d but %d units", a.Metadata.UnitCount, len(a.Units))}
	}
	closed := make(map[int]bool)
	prevChapter := 0
	for i, u := range a.Units {
		if u.OrderIndex != i {
			return &finding{detail: fmt.Sprintf("unit %d has order_index %d", i, u.OrderIndex)}
		}
		if u.CharEnd <= u.CharStart {
			return &finding{detail: fmt.Sprintf("unit %d has empty span [%d,%d)", i, u.CharStart, u.CharEnd)}
		}
		if u.ChapterIndex != prevChapter {
			if closed[u.ChapterIndex] {
				return &finding{detail: fmt.Sprintf("chapter %d is not contiguous", u.ChapterIndex)}
			}
			closed[prevChapter] = true
			prevChapter = u.ChapterIndex
		}
	}
	return nil
}

func checkChunks(a *artifacts.ChunksArtifact, s *artifacts.StructureArtifact) *finding {
	unitChapter := make(map[int]int, len(s.Units))
	for _, u := range s.Units {
		unitChapter[u.OrderIndex] = u.ChapterIndex
	}
	if a.Metadata.Planner.SegmentCount != len(a.Chunks) {
		return &finding{detail: fmt.Sprintf("planner segment_count %d but %d chunks", a.Metadata.Planner.SegmentCount, len(a.Chunks))}
	}
	if a.Metadata.Planner.Strategy == segment.StrategyPlanner && a.Metadata.Planner.SourceStructureUnitCount > len(s.Units) {
		return &finding{detail: fmt.Sprintf("planner consumed %d units but structure has %d", a.Metadata.Planner.SourceStructureUnitCount, len(s.Units))}
	}
	for _, c := range a.Chunks {
		for _, idx := range c.SourceOrderIndices {
			ch, ok := unitChapter[idx]
			if !ok {
				return &finding{detail: fmt.Sprintf("chunk %s references unknown structure unit %d", c.Signature(), idx)}
			}
			if ch != c.ChapterIndex {
				return &finding{detail: fmt.Sprintf("chunk %s references unit %d of chapter %d", c.Signature(), idx, ch)}
			}
		}
		if c.ChunkIndex != c.PartIndex-1 {
			return &finding{detail: fmt.Sprintf("chunk %s has part_index %d", c.Signature(), c.PartIndex)}
		}
		if want := slug.PartID(c.ChapterIndex, c.PartIndex, c.PartTitle); c.PartID != want {
			return &finding{detail: fmt.Sprintf("chunk %s part_id should be %s", c.Signature(), want)}
		}
	}
	return nil
}

func (v *Validator) checkAudioFiles(a *artifacts.AudioPartsArtifact) *finding {
	derived := make(map[string][]string)
	for _, p := range a.Parts {
		if !v.store.Exists(p.Path) {
			return &finding{detail: fmt.Sprintf("audio file %s is missing", v.store.Path(p.Path))}
		}
		key := strconv.Itoa(p.ChapterIndex)
		derived[key] = append(derived[key], p.PartID)
	}
	if !maps.EqualFunc(derived, a.ChapterPartMap, slices.Equal[[]string]) {
		return &finding{detail: "chapter_part_map does not match audio parts"}
	}
	return nil
}

func checkPackage(a *artifacts.PackageArtifact, parts *artifacts.AudioPartsArtifact) *finding {
	if len(a.Chapters) != len(parts.ChapterPartMap) {
		return &finding{detail: fmt.Sprintf("packaged %d chapters but %d were synthesized", len(a.Chapters), len(parts.ChapterPartMap))}
	}
	for _, ch := range a.Chapters {
		want, ok := parts.ChapterPartMap[strconv.Itoa(ch.ChapterIndex)]
		if !ok {
			return &finding{detail: fmt.Sprintf("packaged chapter %d was not synthesized", ch.ChapterIndex)}
		}
		if !slices.Equal(want, ch.PartIDs) {
			return &finding{detail: fmt.Sprintf("packaged chapter %d part ids do not match synthesized parts", ch.ChapterIndex)}
		}
	}
	return nil
}
