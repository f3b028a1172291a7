package manifest

import (
	"errors"
	"testing"
	"time"

	"github.com/jackzampolin/bookvoice/internal/artifacts"
	"github.com/jackzampolin/bookvoice/internal/types"
)

func testSettings() types.RunSettings {
	return types.RunSettings{
		SourcePath:        "book.txt",
		Language:          "en",
		TranslateProvider: "mock",
		RewriteProvider:   "bypass",
		RewriteBypass:     true,
		TTSProvider:       "mock",
		BudgetChars:       6500,
		CeilingChars:      9300,
		AudioFormat:       "wav",
	}
}

func TestStoreLifecycle(t *testing.T) {
	s := NewStore(artifacts.NewStore(t.TempDir()))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if _, err := s.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() on empty run error = %v, want ErrNotFound", err)
	}

	hash := "0123456789abcdef0123"
	id := types.RunIdentity{RunID: types.RunIDFor(hash), ConfigHash: hash, AttemptID: "attempt-1"}
	m := New(id, testSettings(), types.BookMeta{SourcePath: "book.txt", Title: "book", Language: "en"})
	if err := s.Save(m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	m, err := s.StageCompleted("chunk", map[string]any{types.ExtraForcedSplitCount: 2})
	if err != nil {
		t.Fatalf("StageCompleted() error = %v", err)
	}
	if m.Extra[types.ExtraLastStage] != "chunk" {
		t.Errorf("last_stage = %v, want chunk", m.Extra[types.ExtraLastStage])
	}
	if m.Completed() {
		t.Error("Completed() = true before MarkCompleted")
	}

	if _, err := s.MarkCompleted(); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.Completed() {
		t.Error("Completed() = false after MarkCompleted")
	}
	if !loaded.UpdatedAt.Equal(fixed) {
		t.Errorf("UpdatedAt = %v, want %v", loaded.UpdatedAt, fixed)
	}
	if loaded.RunID != "run-0123456789ab" {
		t.Errorf("RunID = %s", loaded.RunID)
	}
	if err := CheckIdentity(loaded, id); err != nil {
		t.Errorf("CheckIdentity() error = %v", err)
	}
}

func TestCheckIdentity(t *testing.T) {
	hash := "aaaaaaaaaaaaaaaaaaaa"
	m := &types.RunManifest{RunID: types.RunIDFor(hash), ConfigHash: hash}

	if err := CheckIdentity(m, types.RunIdentity{ConfigHash: "bbbb"}); err == nil {
		t.Error("expected config hash mismatch")
	}
	m.RunID = "run-other"
	if err := CheckIdentity(m, types.RunIdentity{ConfigHash: hash}); err == nil {
		t.Error("expected run_id mismatch")
	}
}
