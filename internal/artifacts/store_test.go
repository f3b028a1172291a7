package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/bookvoice/internal/chapters"
	"github.com/jackzampolin/bookvoice/internal/segment"
	"github.com/jackzampolin/bookvoice/internal/types"
)

func TestStoreWriteRead(t *testing.T) {
	s := NewStore(t.TempDir())

	if err := s.WriteText(CleanTextPath, "hello"); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	got, err := s.ReadText(CleanTextPath)
	if err != nil {
		t.Fatalf("ReadText() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("ReadText() = %q, want hello", got)
	}
	if !s.Exists(CleanTextPath) {
		t.Error("Exists() = false after write")
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path(CleanTextPath)))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}

	if err := s.Remove(CleanTextPath); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := s.Remove(CleanTextPath); err != nil {
		t.Errorf("Remove() of missing file error = %v", err)
	}
}

func sampleChunks() *ChunksArtifact {
	return &ChunksArtifact{
		Chunks: []types.Chunk{{
			ChapterIndex:       1,
			ChunkIndex:         0,
			Text:               "Hello.",
			CharStart:          0,
			CharEnd:            6,
			PartIndex:          1,
			PartTitle:          "Intro",
			PartID:             "001_01_intro",
			SourceOrderIndices: []int{0},
			BoundaryStrategy:   types.BoundaryParagraph,
		}},
		Metadata: ChunksMetadata{
			Planner: segment.PlannerMetadata{
				Strategy:                    segment.StrategyPlanner,
				BudgetChars:                 6500,
				BudgetCeilingChars:          9300,
				SegmentCount:                1,
				SourceStructureUnitCount:    1,
				SourceStructureOrderIndices: []int{0},
			},
			ChapterScope: chapters.Scope{
				Mode:             chapters.ModeAll,
				Label:            "all",
				Indices:          []int{1},
				AvailableIndices: []int{1},
			},
		},
	}
}

func TestSaveLoadChunks(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := Save(s, ClassChunk, sampleChunks()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load[ChunksArtifact](s, ClassChunk)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Chunks) != 1 || got.Chunks[0].PartID != "001_01_intro" {
		t.Errorf("Load() chunks = %+v", got.Chunks)
	}
	if got.Metadata.Planner.BudgetChars != 6500 {
		t.Errorf("budget = %d, want 6500", got.Metadata.Planner.BudgetChars)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		class Class
		data  string
	}{
		{"not json", ClassChunk, "{"},
		{"missing chunks", ClassChunk, `{"metadata":{}}`},
		{"unknown field", ClassMerge, `{"path":"a","format":"mp3","part_ids":[],"extra":1}`},
		{"bad strategy", ClassStructure, `{"units":[],"metadata":{"source":"guess","fallback_reason":"","unit_count":0,"chapter_count":0,"chunker_fallback":false}}`},
		{"bad chapter index", ClassPackage, `{"format":"mp3","chapters":[{"chapter_index":0,"title":"x","path":"p","part_ids":[]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.class, []byte(tt.data)); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	merged := `{"path":"audio/bookvoice_merged.wav","format":"wav","part_ids":["001_01_intro"],"duration_seconds":1.5}`
	if err := Validate(ClassMerge, []byte(merged)); err != nil {
		t.Errorf("Validate(merge) error = %v", err)
	}
	manifest := `{"run_id":"run-abc","config_hash":"h","settings":{"source_path":"b.txt","language":"en","translate_provider":"openai","translate_model":"","rewrite_provider":"bypass","rewrite_model":"","rewrite_bypass":true,"tts_provider":"openai","tts_model":"","voice":"echo","budget_chars":6500,"ceiling_chars":9300,"chapter_selection":"","audio_format":"wav","packaging":false},"book":{"source_path":"b.txt","title":"B","language":"en"},"artifacts":{},"costs":{"llm_usd":0,"tts_usd":0,"total_usd":0},"updated_at":"2026-01-01T00:00:00Z","extra":{"run_completed":true}}`
	if err := Validate(ClassManifest, []byte(manifest)); err != nil {
		t.Errorf("Validate(manifest) error = %v", err)
	}
}

func TestClassPath(t *testing.T) {
	for _, c := range []Class{ClassStructure, ClassChunk, ClassTranslate, ClassRewrite, ClassSynthesize, ClassMerge, ClassPackage, ClassManifest} {
		if c.Path() == "" {
			t.Errorf("%s has no path", c)
		}
		if _, err := Schema(c); err != nil {
			t.Errorf("Schema(%s) error = %v", c, err)
		}
	}
	if _, err := Schema(Class("bogus")); err == nil {
		t.Error("Schema(bogus) = nil error")
	}
}

func TestPartAudioPath(t *testing.T) {
	got := PartAudioPath(1, 1, "Intro", "wav")
	if got != "audio/parts/001_01_intro.wav" {
		t.Errorf("PartAudioPath() = %q", got)
	}
}
