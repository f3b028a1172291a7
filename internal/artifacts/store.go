// Package artifacts persists stage outputs under a run directory and
// validates them against schemas reflected from their Go types.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store reads and writes artifacts relative to a run root.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the run root.
func (s *Store) Root() string {
	return s.root
}

// Path resolves a run-relative path.
func (s *Store) Path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// Exists reports whether an artifact file exists.
func (s *Store) Exists(rel string) bool {
	_, err := os.Stat(s.Path(rel))
	return err == nil
}

// WriteJSON writes v as indented JSON via a temp file and rename, so readers
// never observe a partial artifact.
func (s *Store) WriteJSON(rel string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", rel, err)
	}
	if err := s.WriteBytes(rel, append(b, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// WriteText writes a text artifact atomically.
func (s *Store) WriteText(rel, text string) error {
	return s.WriteBytes(rel, []byte(text))
}

// WriteBytes writes raw bytes atomically.
func (s *Store) WriteBytes(rel string, data []byte) error {
	return writeFileAtomic(s.Path(rel), data, 0o644)
}

// ReadJSON decodes an artifact into v.
func (s *Store) ReadJSON(rel string, v any) error {
	b, err := os.ReadFile(s.Path(rel))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", rel, err)
	}
	return nil
}

// ReadBytes returns the raw artifact bytes.
func (s *Store) ReadBytes(rel string) ([]byte, error) {
	return os.ReadFile(s.Path(rel))
}

// ReadText returns a text artifact.
func (s *Store) ReadText(rel string) (string, error) {
	b, err := os.ReadFile(s.Path(rel))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Remove deletes an artifact; a missing file is not an error.
func (s *Store) Remove(rel string) error {
	err := os.Remove(s.Path(rel))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp_artifact_*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
