package resume

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/jackzampolin/bookvoice/internal/artifacts"
	"github.com/jackzampolin/bookvoice/internal/chapters"
	"github.com/jackzampolin/bookvoice/internal/manifest"
	"github.com/jackzampolin/bookvoice/internal/segment"
	"github.com/jackzampolin/bookvoice/internal/slug"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// fixture writes a consistent run with n chunks split over two chapters.
type fixture struct {
	t      *testing.T
	store  *artifacts.Store
	chunks []types.Chunk
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	f := &fixture{t: t, store: artifacts.NewStore(t.TempDir())}

	units := make([]types.StructuralUnit, 0, n)
	for i := 0; i < n; i++ {
		ch := 1
		if i >= n/2 {
			ch = 2
		}
		units = append(units, types.StructuralUnit{
			OrderIndex:   i,
			ChapterIndex: ch,
			ChapterTitle: "Chapter " + strconv.Itoa(ch),
			Text:         "Text.",
			CharStart:    i * 10,
			CharEnd:      i*10 + 5,
			Source:       types.SourceHeadingHeuristic,
		})
	}
	f.save(artifacts.ClassStructure, &artifacts.StructureArtifact{
		Units: units,
		Metadata: artifacts.StructureMetadata{
			Source:       "text_heuristic",
			UnitCount:    len(units),
			ChapterCount: 2,
		},
	})

	part := map[int]int{}
	indices := make([]int, 0, n)
	for _, u := range units {
		part[u.ChapterIndex]++
		p := part[u.ChapterIndex]
		f.chunks = append(f.chunks, types.Chunk{
			ChapterIndex:       u.ChapterIndex,
			ChunkIndex:         p - 1,
			Text:               u.Text,
			CharStart:          u.CharStart,
			CharEnd:            u.CharEnd,
			PartIndex:          p,
			PartTitle:          u.ChapterTitle,
			PartID:             slug.PartID(u.ChapterIndex, p, u.ChapterTitle),
			SourceOrderIndices: []int{u.OrderIndex},
			BoundaryStrategy:   types.BoundaryParagraph,
		})
		indices = append(indices, u.OrderIndex)
	}
	f.save(artifacts.ClassChunk, &artifacts.ChunksArtifact{
		Chunks: f.chunks,
		Metadata: artifacts.ChunksMetadata{
			Planner: segment.PlannerMetadata{
				Strategy:                    segment.StrategyPlanner,
				BudgetChars:                 6500,
				BudgetCeilingChars:          9300,
				SegmentCount:                len(f.chunks),
				SourceStructureUnitCount:    len(units),
				SourceStructureOrderIndices: indices,
			},
			ChapterScope: chapters.Scope{Mode: chapters.ModeAll, Label: "all", Indices: []int{1, 2}, AvailableIndices: []int{1, 2}},
		},
	})
	return f
}

func (f *fixture) save(c artifacts.Class, v any) {
	f.t.Helper()
	if err := artifacts.Save(f.store, c, v); err != nil {
		f.t.Fatalf("save %s: %v", c, err)
	}
}

func (f *fixture) translations(n int) []types.Translation {
	out := make([]types.Translation, 0, n)
	for _, c := range f.chunks[:n] {
		out = append(out, types.Translation{Chunk: c, TranslatedText: c.Text, Provider: "mock"})
	}
	return out
}

func (f *fixture) writeTranslations(n int) {
	f.save(artifacts.ClassTranslate, &artifacts.TranslationsArtifact{
		Translations: f.translations(n),
		Metadata:     artifacts.ProviderMetadata{Provider: "mock"},
	})
}

func (f *fixture) writeRewrites() {
	var rewrites []types.Rewrite
	for _, tr := range f.translations(len(f.chunks)) {
		rewrites = append(rewrites, types.Rewrite{Translation: tr, RewrittenText: tr.TranslatedText, Provider: "bypass"})
	}
	f.save(artifacts.ClassRewrite, &artifacts.RewritesArtifact{
		Rewrites: rewrites,
		Metadata: artifacts.ProviderMetadata{Provider: "bypass", Bypass: true},
	})
}

func (f *fixture) writeAudio() []types.AudioPart {
	var parts []types.AudioPart
	for _, c := range f.chunks {
		path := artifacts.PartAudioPath(c.ChapterIndex, c.PartIndex, c.PartTitle, "wav")
		if err := f.store.WriteBytes(path, []byte("RIFF")); err != nil {
			f.t.Fatal(err)
		}
		parts = append(parts, types.AudioPart{
			ChapterIndex: c.ChapterIndex,
			ChunkIndex:   c.ChunkIndex,
			PartIndex:    c.PartIndex,
			PartTitle:    c.PartTitle,
			PartID:       c.PartID,
			Path:         path,
			Provider:     "mock",
		})
	}
	f.save(artifacts.ClassSynthesize, &artifacts.AudioPartsArtifact{
		Parts:          parts,
		ChapterPartMap: segment.ChapterPartMap(f.chunks),
		Metadata:       artifacts.AudioMetadata{Provider: "mock", Format: "wav"},
	})
	return parts
}

func (f *fixture) writeMerged(parts []types.AudioPart) {
	path := artifacts.MergedAudioPath("wav")
	if err := f.store.WriteBytes(path, []byte("RIFF")); err != nil {
		f.t.Fatal(err)
	}
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.PartID)
	}
	f.save(artifacts.ClassMerge, &artifacts.MergedArtifact{Path: path, Format: "wav", PartIDs: ids})
}

func (f *fixture) writeManifest(completed bool) types.RunIdentity {
	hash := strings.Repeat("ab", 32)
	id := types.RunIdentity{RunID: types.RunIDFor(hash), ConfigHash: hash, AttemptID: "a1"}
	m := manifest.New(id, types.RunSettings{
		SourcePath: "book.txt", Language: "en", TranslateProvider: "mock", RewriteProvider: "bypass",
		TTSProvider: "mock", BudgetChars: 6500, CeilingChars: 9300, AudioFormat: "wav",
	}, types.BookMeta{SourcePath: "book.txt", Language: "en"})
	m.Extra[types.ExtraRunCompleted] = completed
	if err := manifest.NewStore(f.store).Save(m); err != nil {
		f.t.Fatal(err)
	}
	return id
}

func TestChunkTranslationCountMismatch(t *testing.T) {
	f := newFixture(t, 10)
	f.writeTranslations(8)
	f.writeManifest(false)

	r := NewValidator(f.store, Options{}).Validate()

	if r.Classification != NonRecoverable {
		t.Fatalf("Classification = %s, want non_recoverable", r.Classification)
	}
	if r.NextStage != string(artifacts.ClassTranslate) {
		t.Errorf("NextStage = %s, want translate", r.NextStage)
	}
	chunksPath := f.store.Path(artifacts.ChunksPath)
	translationsPath := f.store.Path(artifacts.TranslationsPath)
	for _, p := range []string{chunksPath, translationsPath} {
		if !slices.Contains(r.Paths, p) {
			t.Errorf("Paths = %v, missing %s", r.Paths, p)
		}
	}
	c, _ := r.Class(artifacts.ClassTranslate)
	if c.Status != StatusStale {
		t.Errorf("translate status = %s, want present_stale", c.Status)
	}
	if !strings.Contains(r.Remediation, translationsPath) {
		t.Errorf("Remediation = %q, want it to name %s", r.Remediation, translationsPath)
	}

	err := r.Err()
	if !errors.Is(err, types.ErrResumeNonRecoverable) {
		t.Fatalf("Err() = %v, want ErrResumeNonRecoverable", err)
	}
	if !strings.Contains(err.Error(), chunksPath) || !strings.Contains(err.Error(), translationsPath) {
		t.Errorf("Err() = %v, want both paths", err)
	}
}

func TestPartialRunIsRecoverable(t *testing.T) {
	f := newFixture(t, 4)
	f.writeTranslations(4)
	f.writeManifest(false)

	r := NewValidator(f.store, Options{}).Validate()
	if !r.Recoverable() {
		t.Fatalf("Classification = %s, diagnostics = %v", r.Classification, r.Diagnostics)
	}
	if r.NextStage != string(artifacts.ClassRewrite) {
		t.Errorf("NextStage = %s, want rewrite", r.NextStage)
	}
	if !r.Reusable(artifacts.ClassTranslate) {
		t.Error("translate should be reusable")
	}
	if r.Reusable(artifacts.ClassRewrite) {
		t.Error("rewrite should not be reusable")
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestMissingWithDownstreamPresent(t *testing.T) {
	f := newFixture(t, 4)
	f.writeTranslations(4)
	f.writeRewrites()
	if err := f.store.Remove(artifacts.TranslationsPath); err != nil {
		t.Fatal(err)
	}

	r := NewValidator(f.store, Options{}).Validate()
	if r.Classification != NonRecoverable {
		t.Fatalf("Classification = %s, want non_recoverable", r.Classification)
	}
	if r.NextStage != string(artifacts.ClassTranslate) {
		t.Errorf("NextStage = %s, want translate", r.NextStage)
	}
	if !slices.Contains(r.Paths, f.store.Path(artifacts.RewritesPath)) {
		t.Errorf("Paths = %v, want rewrites path", r.Paths)
	}
}

func TestCompletedRun(t *testing.T) {
	f := newFixture(t, 4)
	f.writeTranslations(4)
	f.writeRewrites()
	parts := f.writeAudio()
	f.writeMerged(parts)
	id := f.writeManifest(true)

	r := NewValidator(f.store, Options{Identity: &id}).Validate()
	if !r.Recoverable() || r.NextStage != StageDone {
		t.Fatalf("got %s at %s, diagnostics = %v", r.Classification, r.NextStage, r.Diagnostics)
	}
	for _, c := range r.Classes {
		if c.Status != StatusConsistent {
			t.Errorf("%s status = %s", c.Stage, c.Status)
		}
	}

	m := &types.RunManifest{}
	r.Apply(m)
	if m.Extra[types.ExtraResumeStatus] != "recoverable" || m.Extra[types.ExtraResumeNextStage] != "done" {
		t.Errorf("Apply() extra = %v", m.Extra)
	}
}

func TestIncompleteManifestIsRecoverable(t *testing.T) {
	f := newFixture(t, 4)
	f.writeTranslations(4)
	f.writeRewrites()
	parts := f.writeAudio()
	f.writeMerged(parts)
	f.writeManifest(false)

	r := NewValidator(f.store, Options{}).Validate()
	if !r.Recoverable() {
		t.Fatalf("diagnostics = %v", r.Diagnostics)
	}
	if r.NextStage != string(artifacts.ClassManifest) {
		t.Errorf("NextStage = %s, want manifest", r.NextStage)
	}
}

func TestMissingAudioFileIsStale(t *testing.T) {
	f := newFixture(t, 4)
	f.writeTranslations(4)
	f.writeRewrites()
	parts := f.writeAudio()
	if err := f.store.Remove(parts[1].Path); err != nil {
		t.Fatal(err)
	}

	r := NewValidator(f.store, Options{}).Validate()
	if r.Classification != NonRecoverable || r.NextStage != string(artifacts.ClassSynthesize) {
		t.Errorf("got %s at %s", r.Classification, r.NextStage)
	}
}

func TestIdentityMismatch(t *testing.T) {
	f := newFixture(t, 4)
	f.writeManifest(false)
	other := types.RunIdentity{ConfigHash: strings.Repeat("cd", 32)}

	r := NewValidator(f.store, Options{Identity: &other}).Validate()
	if r.Classification != NonRecoverable {
		t.Errorf("Classification = %s, want non_recoverable", r.Classification)
	}
}

func TestMalformedArtifactIsStale(t *testing.T) {
	f := newFixture(t, 4)
	if err := f.store.WriteText(artifacts.TranslationsPath, `{"translations": "nope"}`); err != nil {
		t.Fatal(err)
	}

	r := NewValidator(f.store, Options{}).Validate()
	c, _ := r.Class(artifacts.ClassTranslate)
	if c.Status != StatusStale {
		t.Errorf("status = %s, want present_stale", c.Status)
	}
	if r.Recoverable() {
		t.Error("malformed artifact should be non_recoverable")
	}
}

func TestStages(t *testing.T) {
	without := Stages(false)
	with := Stages(true)
	if len(with) != len(without)+1 {
		t.Fatalf("Stages(true) = %v", with)
	}
	if without[len(without)-1] != artifacts.ClassManifest || with[len(with)-2] != artifacts.ClassPackage {
		t.Errorf("unexpected stage order: %v / %v", without, with)
	}
}
