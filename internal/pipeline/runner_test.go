package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/jackzampolin/bookvoice/internal/artifacts"
	"github.com/jackzampolin/bookvoice/internal/config"
	"github.com/jackzampolin/bookvoice/internal/providers"
	"github.com/jackzampolin/bookvoice/internal/resume"
	"github.com/jackzampolin/bookvoice/internal/segment"
	"github.com/jackzampolin/bookvoice/internal/testutil"
	"github.com/jackzampolin/bookvoice/internal/types"
)

const testBook = `# Chapter One

The river was quiet in the morning. Boats waited at the pier.

A fisherman walked along the bank and counted the nets he had left there.

# Chapter Two

Evening came slowly. The lamps in the town were lit one by one.
`

type testEnv struct {
	dir      string
	source   string
	cfg      *config.Config
	registry *providers.Registry
	llm      *providers.MockClient
	tts      *providers.MockTTS
	logger   *slog.Logger
}

func newTestEnv(t *testing.T, text, packageFormat string) *testEnv {
	t.Helper()
	source := testutil.WriteFile(t, "book.md", text)

	cfg := config.DefaultConfig()
	cfg.Defaults.TranslateProvider = providers.MockName
	cfg.Defaults.RewriteProvider = providers.MockName
	cfg.Defaults.TTSProvider = providers.MockName
	cfg.Defaults.Workers = 2
	cfg.Planner.BudgetChars = 120
	cfg.Planner.CeilingChars = 200
	cfg.Audio.Format = "wav"
	cfg.Audio.Encoder = "native"
	cfg.Audio.PackageFormat = packageFormat
	cfg.Audio.PackageNumbering = NumberingSequential

	mocks := testutil.NewMocks()
	mocks.LLM.CostPerCall = 0.01
	return &testEnv{
		dir:      filepath.Join(t.TempDir(), "run"),
		source:   source,
		cfg:      cfg,
		registry: mocks.Registry,
		llm:      mocks.LLM,
		tts:      mocks.TTS,
		logger:   testutil.Logger(),
	}
}

func (e *testEnv) settings(t *testing.T, selection string) types.RunSettings {
	t.Helper()
	s, err := ResolveSettings(e.cfg, NewPromptResolver("", e.logger), e.source, selection)
	if err != nil {
		t.Fatalf("ResolveSettings failed: %v", err)
	}
	return s
}

func (e *testEnv) factory(t *testing.T, s types.RunSettings) *Factory {
	t.Helper()
	f, err := NewFactory(s, Deps{Config: e.cfg, Registry: e.registry, Logger: e.logger})
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}
	return f
}

func (e *testEnv) run(t *testing.T, s types.RunSettings) (*Result, error) {
	t.Helper()
	return NewRunner(e.factory(t, s)).Run(context.Background(), e.dir, s)
}

func TestRunnerFullRun(t *testing.T) {
	env := newTestEnv(t, testBook, "none")
	s := env.settings(t, "")

	res, err := env.run(t, s)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"extract", "clean", "structure", "chunk", "translate", "rewrite", "synthesize", "merge", "manifest"}
	if !slices.Equal(res.Executed, want) {
		t.Errorf("Executed = %v, want %v", res.Executed, want)
	}
	if len(res.Reused) != 0 {
		t.Errorf("Reused = %v, want none", res.Reused)
	}
	if !res.Manifest.Completed() {
		t.Error("manifest not marked completed")
	}
	if res.Manifest.RunID != res.RunID {
		t.Errorf("manifest run_id = %q, want %q", res.Manifest.RunID, res.RunID)
	}
	if res.Manifest.Extra[types.ExtraAttemptID] != res.AttemptID {
		t.Errorf("manifest attempt_id = %v, want %q", res.Manifest.Extra[types.ExtraAttemptID], res.AttemptID)
	}

	store := artifacts.NewStore(env.dir)
	chunks, err := artifacts.Load[artifacts.ChunksArtifact](store, artifacts.ClassChunk)
	if err != nil {
		t.Fatalf("failed to load chunks: %v", err)
	}
	if len(chunks.Chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks.Chunks))
	}
	for _, c := range chunks.Chunks {
		if len([]rune(c.Text)) > 200 {
			t.Errorf("chunk %s exceeds ceiling: %d chars", c.PartID, len([]rune(c.Text)))
		}
	}

	calls := env.llm.RequestCount()
	if calls != int64(2*len(chunks.Chunks)) {
		t.Errorf("llm calls = %d, want %d", calls, 2*len(chunks.Chunks))
	}
	if got := res.Manifest.Extra[types.ExtraProviderCacheMisses]; got != float64(calls) {
		t.Errorf("provider_cache_misses = %v, want %d", got, calls)
	}
	if got := res.Manifest.Extra[types.ExtraProviderCacheHits]; got != float64(0) {
		t.Errorf("provider_cache_hits = %v, want 0", got)
	}
	wantCost := 0.01 * float64(calls)
	if diff := res.Manifest.Costs.LLMUSD - wantCost; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("llm cost = %f, want %f", res.Manifest.Costs.LLMUSD, wantCost)
	}

	merged, err := artifacts.Load[artifacts.MergedArtifact](store, artifacts.ClassMerge)
	if err != nil {
		t.Fatalf("failed to load merged: %v", err)
	}
	if !store.Exists(merged.Path) {
		t.Errorf("merged audio %s missing", merged.Path)
	}
	if merged.DurationSeconds <= 0 {
		t.Errorf("merged duration = %f, want > 0", merged.DurationSeconds)
	}
	if len(merged.PartIDs) != len(chunks.Chunks) {
		t.Errorf("merged %d parts, want %d", len(merged.PartIDs), len(chunks.Chunks))
	}
	for _, rel := range []string{artifacts.RawTextPath, artifacts.CleanTextPath} {
		if !store.Exists(rel) {
			t.Errorf("%s missing", rel)
		}
	}
	if store.Exists(artifacts.PackagePath) {
		t.Error("package artifact written with packaging disabled")
	}
}

func TestRunnerReusesCompletedRun(t *testing.T) {
	env := newTestEnv(t, testBook, "none")
	s := env.settings(t, "")

	first, err := env.run(t, s)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	calls := env.llm.RequestCount()

	second, err := env.run(t, s)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if second.RunID != first.RunID || second.ConfigHash != first.ConfigHash {
		t.Errorf("identity changed across runs: %s/%s", first.RunID, second.RunID)
	}
	if second.AttemptID == first.AttemptID {
		t.Error("attempt id reused across invocations")
	}
	if second.Resume.NextStage != resume.StageDone {
		t.Errorf("NextStage = %q, want done", second.Resume.NextStage)
	}
	if len(second.Executed) != 0 {
		t.Errorf("Executed = %v, want none", second.Executed)
	}
	if env.llm.RequestCount() != calls {
		t.Errorf("provider called again: %d -> %d", calls, env.llm.RequestCount())
	}
}

func TestRunnerResumesFromMerge(t *testing.T) {
	env := newTestEnv(t, testBook, "none")
	s := env.settings(t, "")

	if _, err := env.run(t, s); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	store := artifacts.NewStore(env.dir)
	if err := store.Remove(artifacts.MergedPath); err != nil {
		t.Fatalf("failed to remove merged: %v", err)
	}
	calls := env.llm.RequestCount()
	ttsCalls := env.tts.RequestCount()

	res, err := env.run(t, s)
	if err != nil {
		t.Fatalf("resume Run failed: %v", err)
	}
	if res.Resume.NextStage != string(artifacts.ClassMerge) {
		t.Errorf("NextStage = %q, want merge", res.Resume.NextStage)
	}
	wantReused := []string{"structure", "chunk", "translate", "rewrite", "synthesize"}
	if !slices.Equal(res.Reused, wantReused) {
		t.Errorf("Reused = %v, want %v", res.Reused, wantReused)
	}
	wantExecuted := []string{"merge", "manifest"}
	if !slices.Equal(res.Executed, wantExecuted) {
		t.Errorf("Executed = %v, want %v", res.Executed, wantExecuted)
	}
	if env.llm.RequestCount() != calls || env.tts.RequestCount() != ttsCalls {
		t.Error("providers called for reused stages")
	}
	if !res.Manifest.Completed() {
		t.Error("manifest not completed after resume")
	}
	if res.Manifest.Costs.LLMUSD == 0 {
		t.Error("costs of reused stages dropped from manifest")
	}
}

func TestRunnerNonRecoverable(t *testing.T) {
	env := newTestEnv(t, testBook, "none")
	s := env.settings(t, "")

	if _, err := env.run(t, s); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	store := artifacts.NewStore(env.dir)
	tr, err := artifacts.Load[artifacts.TranslationsArtifact](store, artifacts.ClassTranslate)
	if err != nil {
		t.Fatalf("failed to load translations: %v", err)
	}
	tr.Translations = tr.Translations[:len(tr.Translations)-1]
	if err := artifacts.Save(store, artifacts.ClassTranslate, tr); err != nil {
		t.Fatalf("failed to save translations: %v", err)
	}
	before, err := store.ReadBytes(artifacts.RewritesPath)
	if err != nil {
		t.Fatalf("failed to read rewrites: %v", err)
	}
	calls := env.llm.RequestCount()

	res, err := env.run(t, s)
	if err == nil {
		t.Fatal("expected non-recoverable error")
	}
	if !errors.Is(err, types.ErrResumeNonRecoverable) {
		t.Errorf("error = %v, want resume_non_recoverable", err)
	}
	if res.Resume.NextStage != string(artifacts.ClassTranslate) {
		t.Errorf("NextStage = %q, want translate", res.Resume.NextStage)
	}
	if !strings.Contains(res.Resume.Remediation, store.Path(artifacts.RewritesPath)) {
		t.Errorf("remediation %q does not name the rewrites artifact", res.Resume.Remediation)
	}
	after, err := store.ReadBytes(artifacts.RewritesPath)
	if err != nil {
		t.Fatalf("rewrites removed: %v", err)
	}
	if string(before) != string(after) {
		t.Error("rewrites artifact modified")
	}
	if env.llm.RequestCount() != calls {
		t.Error("provider called for non-recoverable run")
	}
}

func TestRunnerPackaging(t *testing.T) {
	env := newTestEnv(t, testBook, "wav")
	s := env.settings(t, "2")
	if !s.Packaging {
		t.Fatal("packaging not enabled")
	}

	res, err := env.run(t, s)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !slices.Contains(res.Executed, string(artifacts.ClassPackage)) {
		t.Errorf("package stage not executed: %v", res.Executed)
	}

	store := artifacts.NewStore(env.dir)
	chunks, err := artifacts.Load[artifacts.ChunksArtifact](store, artifacts.ClassChunk)
	if err != nil {
		t.Fatalf("failed to load chunks: %v", err)
	}
	for _, c := range chunks.Chunks {
		if c.ChapterIndex != 2 {
			t.Errorf("chunk %s from chapter %d outside selection", c.PartID, c.ChapterIndex)
		}
	}
	if chunks.Metadata.ChapterScope.Mode != "selected" {
		t.Errorf("scope mode = %q, want selected", chunks.Metadata.ChapterScope.Mode)
	}

	pkg, err := artifacts.Load[artifacts.PackageArtifact](store, artifacts.ClassPackage)
	if err != nil {
		t.Fatalf("failed to load package: %v", err)
	}
	if len(pkg.Chapters) != 1 {
		t.Fatalf("got %d packaged chapters, want 1", len(pkg.Chapters))
	}
	ch := pkg.Chapters[0]
	if ch.ChapterIndex != 2 || ch.ChapterNumber != 1 {
		t.Errorf("chapter index/number = %d/%d, want 2/1", ch.ChapterIndex, ch.ChapterNumber)
	}
	if ch.Title != "Chapter Two" {
		t.Errorf("chapter title = %q", ch.Title)
	}
	if !strings.HasPrefix(filepath.Base(ch.Path), "chapter_001_") || !store.Exists(ch.Path) {
		t.Errorf("unexpected packaged file %s", ch.Path)
	}
}

func TestRunnerRewriteBypass(t *testing.T) {
	env := newTestEnv(t, testBook, "none")
	env.cfg.Defaults.RewriteBypass = true
	s := env.settings(t, "1")

	if _, err := env.run(t, s); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	store := artifacts.NewStore(env.dir)
	rw, err := artifacts.Load[artifacts.RewritesArtifact](store, artifacts.ClassRewrite)
	if err != nil {
		t.Fatalf("failed to load rewrites: %v", err)
	}
	if !rw.Metadata.Bypass || rw.Metadata.Provider != BypassProvider {
		t.Errorf("rewrite metadata = %+v, want bypass", rw.Metadata)
	}
	for _, r := range rw.Rewrites {
		if r.RewrittenText != r.Translation.TranslatedText {
			t.Errorf("bypass changed text for %s", r.Chunk().PartID)
		}
	}
	if env.llm.RequestCount() != int64(len(rw.Rewrites)) {
		t.Errorf("llm calls = %d, want one per translation", env.llm.RequestCount())
	}
}

func TestRunnerTranslateFailure(t *testing.T) {
	env := newTestEnv(t, testBook, "none")
	env.llm.ShouldFail = true
	s := env.settings(t, "")

	res, err := env.run(t, s)
	if err == nil {
		t.Fatal("expected translate failure")
	}
	if slices.Contains(res.Executed, string(artifacts.ClassTranslate)) {
		t.Error("translate reported as executed")
	}
	store := artifacts.NewStore(env.dir)
	if store.Exists(artifacts.TranslationsPath) {
		t.Error("partial translations written")
	}

	m, err := LoadManifest(env.dir)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if m.Completed() {
		t.Error("failed run marked completed")
	}
	if m.Extra[types.ExtraLastStage] != string(artifacts.ClassChunk) {
		t.Errorf("last_stage = %v, want chunk", m.Extra[types.ExtraLastStage])
	}

	env.llm.ShouldFail = false
	res, err = env.run(t, s)
	if err != nil {
		t.Fatalf("resume after failure: %v", err)
	}
	if res.Resume.NextStage != string(artifacts.ClassTranslate) {
		t.Errorf("NextStage = %q, want translate", res.Resume.NextStage)
	}
}

func TestRunnerChunkerFallback(t *testing.T) {
	text := strings.Repeat("A sentence without any heading at all. ", 8)
	env := newTestEnv(t, text, "none")
	s := env.settings(t, "")

	res, err := env.run(t, s)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Manifest.Completed() {
		t.Error("manifest not completed")
	}
	store := artifacts.NewStore(env.dir)
	st, err := artifacts.Load[artifacts.StructureArtifact](store, artifacts.ClassStructure)
	if err != nil {
		t.Fatalf("failed to load structure: %v", err)
	}
	if !st.Metadata.ChunkerFallback || len(st.Units) != 1 {
		t.Errorf("structure metadata = %+v, want one chunker fallback unit", st.Metadata)
	}
	chunks, err := artifacts.Load[artifacts.ChunksArtifact](store, artifacts.ClassChunk)
	if err != nil {
		t.Fatalf("failed to load chunks: %v", err)
	}
	if chunks.Metadata.Planner.Strategy != segment.StrategyFallback {
		t.Errorf("strategy = %q, want %q", chunks.Metadata.Planner.Strategy, segment.StrategyFallback)
	}
	if len(chunks.Chunks) < 2 {
		t.Errorf("got %d chunks, want the text split", len(chunks.Chunks))
	}
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t, testBook, "none")
	s := env.settings(t, "")

	report, err := Validate(env.dir, s, env.logger)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if report.NextStage != string(artifacts.ClassStructure) {
		t.Errorf("empty dir NextStage = %q, want structure", report.NextStage)
	}
	if _, err := os.Stat(env.dir); !os.IsNotExist(err) {
		t.Error("Validate created the run directory")
	}
}

func TestInspect(t *testing.T) {
	env := newTestEnv(t, testBook, "none")
	s := env.settings(t, "")
	f := env.factory(t, s)

	ins, err := Inspect(context.Background(), f, s, true)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if len(ins.Chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(ins.Chapters))
	}
	if ins.Chapters[1].Title != "Chapter Two" {
		t.Errorf("chapter 2 title = %q", ins.Chapters[1].Title)
	}
	if ins.Chunks == nil || len(ins.Chunks.Chunks) == 0 {
		t.Error("no chunks planned")
	}
	if ins.Book.Title != "book" {
		t.Errorf("book title = %q, want file stem", ins.Book.Title)
	}
	if _, err := os.Stat(env.dir); !os.IsNotExist(err) {
		t.Error("Inspect wrote to the run directory")
	}

	s.ChapterSelection = "7"
	if _, err := Inspect(context.Background(), f, s, true); err == nil {
		t.Error("expected error for out-of-range selection")
	}
}
