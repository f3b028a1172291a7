package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/bookvoice/internal/artifacts"
	"github.com/jackzampolin/bookvoice/internal/config"
	"github.com/jackzampolin/bookvoice/internal/manifest"
	"github.com/jackzampolin/bookvoice/internal/resume"
	"github.com/jackzampolin/bookvoice/internal/segment"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// Run is the state of one invocation against a run directory. Stages read
// upstream output from it and store their own.
type Run struct {
	ID       types.RunIdentity
	Settings types.RunSettings
	Store    *artifacts.Store
	Manifest *manifest.Store

	factory *Factory
	logger  *slog.Logger

	doc          *types.Document
	cleanDoc     *types.Document
	fallbackPlan *segment.Plan
	structure    *artifacts.StructureArtifact
	chunks       *artifacts.ChunksArtifact
	translations *artifacts.TranslationsArtifact
	rewrites     *artifacts.RewritesArtifact
	parts        *artifacts.AudioPartsArtifact
	merged       *artifacts.MergedArtifact
	pkg          *artifacts.PackageArtifact
}

// record updates the manifest after a stage finished.
func (run *Run) record(stage string, fn func(m *types.RunManifest)) error {
	costs := run.costs()
	_, err := run.Manifest.Update(func(m *types.RunManifest) {
		if fn != nil {
			fn(m)
		}
		m.Costs = costs
		m.Extra[types.ExtraLastStage] = stage
	})
	if err != nil {
		return fmt.Errorf("failed to update manifest after %s: %w", stage, err)
	}
	return nil
}

// costs sums provider cost estimates over the stage output held in memory.
func (run *Run) costs() types.CostSummary {
	var c types.CostSummary
	if run.translations != nil {
		for _, t := range run.translations.Translations {
			c.Add(t.CostUSD, 0)
		}
	}
	if run.rewrites != nil {
		for _, r := range run.rewrites.Rewrites {
			c.Add(r.CostUSD, 0)
		}
	}
	if run.parts != nil {
		for _, p := range run.parts.Parts {
			c.Add(0, p.CostUSD)
		}
	}
	return c
}

// Result summarizes one invocation.
type Result struct {
	RunID      string             `json:"run_id"`
	RunDir     string             `json:"run_dir"`
	ConfigHash string             `json:"config_hash"`
	AttemptID  string             `json:"attempt_id"`
	Reused     []string           `json:"reused"`
	Executed   []string           `json:"executed"`
	Duration   time.Duration      `json:"duration"`
	Resume     *resume.Report     `json:"resume_validation"`
	Manifest   *types.RunManifest `json:"manifest,omitempty"`
}

// Runner executes the stage sequence for one run directory.
type Runner struct {
	factory *Factory
	logger  *slog.Logger
}

// NewRunner creates a runner over a factory.
func NewRunner(f *Factory) *Runner {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{factory: f, logger: logger}
}

// Run validates the artifacts already in dir, reuses every consistent
// stage, and executes the rest. A non-recoverable artifact state returns a
// resume_non_recoverable StageError without touching any file.
func (r *Runner) Run(ctx context.Context, dir string, settings types.RunSettings) (*Result, error) {
	start := time.Now()
	id, err := config.Identity(settings)
	if err != nil {
		return nil, err
	}
	id.AttemptID = uuid.NewString()

	store := artifacts.NewStore(dir)
	logger := r.logger.With("run_id", id.RunID)
	res := &Result{
		RunID:      id.RunID,
		RunDir:     dir,
		ConfigHash: id.ConfigHash,
		AttemptID:  id.AttemptID,
		Reused:     []string{},
		Executed:   []string{},
	}

	report := resume.NewValidator(store, resume.Options{
		Packaging: settings.Packaging,
		Identity:  &id,
		Logger:    logger,
	}).Validate()
	res.Resume = report
	if !report.Recoverable() {
		logger.Error("artifacts are not resumable", "next_stage", report.NextStage, "issues", len(report.Diagnostics))
		return res, report.Err()
	}

	ms := manifest.NewStore(store)
	if report.NextStage == resume.StageDone {
		logger.Info("run already complete")
		m, err := ms.Load()
		if err != nil {
			return res, err
		}
		res.Manifest = m
		res.Duration = time.Since(start)
		return res, nil
	}

	if err := prepareManifest(ms, logger, id, settings, report); err != nil {
		return res, err
	}

	registry, err := NewStageRegistry(settings.Packaging)
	if err != nil {
		return res, err
	}
	stages, err := registry.GetOrdered()
	if err != nil {
		return res, err
	}

	run := &Run{
		ID:       id,
		Settings: settings,
		Store:    store,
		Manifest: ms,
		factory:  r.factory,
		logger:   logger,
	}

	pending := map[string]bool{}
	if first := firstToExecute(stages, report.NextStage); first < len(stages) {
		pending = registry.Downstream(stages[first].Name())
	}
	logger.Info("starting run", "next_stage", report.NextStage, "attempt_id", id.AttemptID)
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !pending[s.Name()] {
			if err := s.Load(ctx, run); err != nil {
				return res, fmt.Errorf("failed to load %s output: %w", s.Name(), err)
			}
			if s.Class() != "" {
				res.Reused = append(res.Reused, s.Name())
			}
			logger.Debug("reused stage", "stage", s.Name())
			continue
		}
		stageStart := time.Now()
		logger.Info("running stage", "stage", s.Name())
		if err := s.Execute(ctx, run); err != nil {
			logStageError(logger, s.Name(), err)
			return res, err
		}
		res.Executed = append(res.Executed, s.Name())
		logger.Info("stage complete", "stage", s.Name(), "duration", time.Since(stageStart).Round(time.Millisecond))
	}

	m, err := ms.Load()
	if err != nil {
		return res, err
	}
	res.Manifest = m
	res.Duration = time.Since(start)
	logger.Info("run complete", "duration", res.Duration.Round(time.Millisecond), "total_usd", m.Costs.TotalUSD)
	return res, nil
}

func prepareManifest(ms *manifest.Store, logger *slog.Logger, id types.RunIdentity, settings types.RunSettings, report *resume.Report) error {
	m, err := ms.Load()
	if err != nil {
		if !errors.Is(err, manifest.ErrNotFound) {
			logger.Warn("rebuilding unreadable manifest", "path", ms.Path(), "error", err)
		}
		m = manifest.New(id, settings, types.BookMeta{
			SourcePath: settings.SourcePath,
			Language:   settings.Language,
		})
	}
	m.Extra[types.ExtraAttemptID] = id.AttemptID
	m.Extra[types.ExtraRunCompleted] = false
	report.Apply(m)
	return ms.Save(m)
}

// firstToExecute returns the position of the first stage to run. Stages
// without an artifact run together with the next stage that has one.
func firstToExecute(stages []Stage, next string) int {
	first := len(stages)
	for i, s := range stages {
		if s.Class() != "" && string(s.Class()) == next {
			first = i
			break
		}
	}
	for first > 0 && first < len(stages) && stages[first-1].Class() == "" {
		first--
	}
	return first
}

func logStageError(logger *slog.Logger, stage string, err error) {
	if kind, ok := types.KindOf(err); ok {
		logger.Error("stage failed", "stage", stage, "kind", kind, "error", err)
		return
	}
	logger.Error("stage failed", "stage", stage, "error", err)
}

// LoadManifest reads the manifest of an existing run directory.
func LoadManifest(dir string) (*types.RunManifest, error) {
	return manifest.NewStore(artifacts.NewStore(dir)).Load()
}

// Validate runs the resume validator over a run directory without
// changing anything.
func Validate(dir string, settings types.RunSettings, logger *slog.Logger) (*resume.Report, error) {
	id, err := config.Identity(settings)
	if err != nil {
		return nil, err
	}
	return resume.NewValidator(artifacts.NewStore(dir), resume.Options{
		Packaging: settings.Packaging,
		Identity:  &id,
		Logger:    logger,
	}).Validate(), nil
}
