package home

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jackzampolin/bookvoice/internal/types"
)

const (
	// DefaultDirName is the default name for the bookvoice home directory.
	DefaultDirName = ".bookvoice"

	// RunsDirName is the subdirectory holding one directory per run.
	RunsDirName = "runs"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// PromptsDirName is the default prompt override directory.
	PromptsDirName = "prompts"
)

// Dir represents the bookvoice home directory structure:
//
//	~/.bookvoice/
//	  config.yaml
//	  prompts/<key>.tmpl
//	  runs/<run_id>/...
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.bookvoice).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// RunsPath returns the directory holding run directories.
func (d *Dir) RunsPath() string {
	return filepath.Join(d.path, RunsDirName)
}

// RunPath returns the root directory of one run.
func (d *Dir) RunPath(runID string) string {
	return filepath.Join(d.RunsPath(), runID)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// PromptsPath returns the default prompt override directory.
func (d *Dir) PromptsPath() string {
	return filepath.Join(d.path, PromptsDirName)
}

// EnsureExists creates the home directory and the runs directory.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.RunsPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}
	return nil
}

// EnsureRunDir creates the directory of one run and returns its path.
func (d *Dir) EnsureRunDir(runID string) (string, error) {
	if !strings.HasPrefix(runID, types.RunIDPrefix) || strings.ContainsAny(runID, `/\`) {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	path := d.RunPath(runID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}
	return path, nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// ListRuns returns the run ids found under the runs directory, sorted.
func (d *Dir) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(d.RunsPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	var runs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), types.RunIDPrefix) {
			runs = append(runs, e.Name())
		}
	}
	slices.Sort(runs)
	return runs, nil
}
