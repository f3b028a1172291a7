// Package testutil holds helpers shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackzampolin/bookvoice/internal/providers"
)

// TestingT is the subset of testing.T the helpers need.
type TestingT interface {
	Helper()
	TempDir() string
	Fatalf(format string, args ...any)
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WriteFile writes content to name under a fresh temp dir and returns the path.
func WriteFile(t TestingT, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// Mocks are offline providers registered under providers.MockName.
type Mocks struct {
	Registry *providers.Registry
	LLM      *providers.MockClient
	TTS      *providers.MockTTS
}

// NewMocks builds a registry with the mock LLM and TTS providers.
func NewMocks() *Mocks {
	m := &Mocks{
		Registry: providers.NewRegistry(),
		LLM:      providers.NewMockClient(),
		TTS:      providers.NewMockTTS(),
	}
	m.Registry.SetLogger(Logger())
	m.Registry.RegisterLLM(providers.MockName, m.LLM)
	m.Registry.RegisterTTS(providers.MockName, m.TTS)
	return m
}
