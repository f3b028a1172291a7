// Package manifest persists the run manifest, the record a later invocation
// reads back to resume a run.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"sync"
	"time"

	"github.com/jackzampolin/bookvoice/internal/artifacts"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// ErrNotFound is returned when a run has no manifest yet.
var ErrNotFound = errors.New("run manifest not found")

// Store reads and writes run_manifest.json for one run.
// The manifest is rewritten in full after every stage.
type Store struct {
	mu    sync.Mutex
	store *artifacts.Store
	now   func() time.Time
}

// NewStore creates a manifest store over a run's artifact store.
func NewStore(store *artifacts.Store) *Store {
	return &Store{store: store, now: time.Now}
}

// Path returns the absolute manifest path.
func (s *Store) Path() string {
	return s.store.Path(artifacts.ManifestPath)
}

// New builds an empty manifest for a run.
func New(id types.RunIdentity, settings types.RunSettings, book types.BookMeta) *types.RunManifest {
	return &types.RunManifest{
		RunID:      id.RunID,
		ConfigHash: id.ConfigHash,
		Settings:   settings,
		Book:       book,
		Extra: map[string]any{
			types.ExtraRunCompleted: false,
			types.ExtraAttemptID:    id.AttemptID,
		},
	}
}

// Load reads and schema-validates the manifest.
func (s *Store) Load() (*types.RunManifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*types.RunManifest, error) {
	m, err := artifacts.Load[types.RunManifest](s.store, artifacts.ClassManifest)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path())
	}
	if err != nil {
		return nil, err
	}
	if m.Extra == nil {
		m.Extra = make(map[string]any)
	}
	return m, nil
}

// Save stamps and persists the manifest.
func (s *Store) Save(m *types.RunManifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(m)
}

func (s *Store) save(m *types.RunManifest) error {
	if m.Extra == nil {
		m.Extra = make(map[string]any)
	}
	m.UpdatedAt = s.now().UTC()
	if err := artifacts.Save(s.store, artifacts.ClassManifest, m); err != nil {
		return fmt.Errorf("failed to write run manifest: %w", err)
	}
	return nil
}

// Update loads the manifest, applies fn, and saves the result.
func (s *Store) Update(fn func(m *types.RunManifest)) (*types.RunManifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return nil, err
	}
	fn(m)
	if err := s.save(m); err != nil {
		return nil, err
	}
	return m, nil
}

// StageCompleted records a finished stage along with extra metadata.
func (s *Store) StageCompleted(stage string, extra map[string]any) (*types.RunManifest, error) {
	return s.Update(func(m *types.RunManifest) {
		maps.Copy(m.Extra, extra)
		m.Extra[types.ExtraLastStage] = stage
	})
}

// MarkCompleted flags the run as finished.
func (s *Store) MarkCompleted() (*types.RunManifest, error) {
	return s.Update(func(m *types.RunManifest) {
		m.Extra[types.ExtraRunCompleted] = true
		m.Extra[types.ExtraLastStage] = string(artifacts.ClassManifest)
	})
}

// CheckIdentity reports whether a manifest belongs to the given run.
func CheckIdentity(m *types.RunManifest, id types.RunIdentity) error {
	if m.ConfigHash != id.ConfigHash {
		return fmt.Errorf("manifest config hash %s does not match current configuration %s", short(m.ConfigHash), short(id.ConfigHash))
	}
	if m.RunID != types.RunIDFor(m.ConfigHash) {
		return fmt.Errorf("manifest run_id %s is not derived from its config hash", m.RunID)
	}
	return nil
}

func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
