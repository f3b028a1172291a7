package pipeline

import (
	"context"

	"github.com/jackzampolin/bookvoice/internal/artifacts"
)

// Stage is one step of a run. Stages are ordered by their dependencies
// and either restore their output from a consistent artifact or produce it.
type Stage interface {
	// Identity
	Name() string           // e.g., "structure", "translate"
	Dependencies() []string // Stages that must complete first

	Description() string

	// Class is the artifact class the stage persists. Stages that only
	// feed later stages in memory return "".
	Class() artifacts.Class

	// Load restores the stage output from its artifact.
	Load(ctx context.Context, run *Run) error

	// Execute produces the stage output and persists it.
	Execute(ctx context.Context, run *Run) error
}

// stage is a Stage assembled from functions.
type stage struct {
	name    string
	deps    []string
	desc    string
	class   artifacts.Class
	load    func(ctx context.Context, run *Run) error
	execute func(ctx context.Context, run *Run) error
}

func (s *stage) Name() string           { return s.name }
func (s *stage) Dependencies() []string { return s.deps }
func (s *stage) Description() string    { return s.desc }
func (s *stage) Class() artifacts.Class { return s.class }

func (s *stage) Load(ctx context.Context, run *Run) error {
	if s.load == nil {
		return nil
	}
	return s.load(ctx, run)
}

func (s *stage) Execute(ctx context.Context, run *Run) error {
	return s.execute(ctx, run)
}
