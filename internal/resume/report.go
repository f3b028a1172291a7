// Package resume classifies a partially completed run. It reads the manifest
// and every artifact in stage order and decides which stage has to run next.
// It never repairs anything.
package resume

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackzampolin/bookvoice/internal/artifacts"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// Status is the per-artifact-class state.
type Status string

const (
	StatusConsistent Status = "present_consistent"
	StatusStale      Status = "present_stale"
	StatusMissing    Status = "missing"
)

// Classification is the overall verdict.
type Classification string

const (
	Recoverable    Classification = "recoverable"
	NonRecoverable Classification = "non_recoverable"
)

// StageDone is reported as the next stage when nothing needs to run.
const StageDone = "done"

// ClassReport describes one artifact class.
type ClassReport struct {
	Stage  artifacts.Class `json:"stage"`
	Path   string          `json:"path"`
	Status Status          `json:"status"`
	Detail string          `json:"detail,omitempty"`
}

// Report is the outcome of one validation pass.
type Report struct {
	Classes        []ClassReport  `json:"classes"`
	Classification Classification `json:"classification"`
	NextStage      string         `json:"next_stage"`
	Paths          []string       `json:"paths,omitempty"`
	Diagnostics    []string       `json:"diagnostics,omitempty"`
	Remediation    string         `json:"remediation,omitempty"`
}

// Recoverable reports whether the run can continue from NextStage.
func (r *Report) Recoverable() bool {
	return r.Classification == Recoverable
}

// Class returns the entry for a stage.
func (r *Report) Class(stage artifacts.Class) (ClassReport, bool) {
	for _, c := range r.Classes {
		if c.Stage == stage {
			return c, true
		}
	}
	return ClassReport{}, false
}

// Reusable reports whether a stage's artifact can be reused as-is.
func (r *Report) Reusable(stage artifacts.Class) bool {
	c, ok := r.Class(stage)
	return ok && c.Status == StatusConsistent && r.Recoverable()
}

// Err returns a ResumeNonRecoverable stage error, or nil when recoverable.
func (r *Report) Err() error {
	if r.Recoverable() {
		return nil
	}
	return types.NewStageError(types.KindResumeNonRecoverable, r.NextStage, strings.Join(r.Diagnostics, " | ")).
		WithHint(r.Remediation).
		WithPaths(r.Paths...)
}

// Apply summarizes the report into manifest extra metadata.
func (r *Report) Apply(m *types.RunManifest) {
	if m.Extra == nil {
		m.Extra = make(map[string]any)
	}
	m.Extra[types.ExtraResumeStatus] = string(r.Classification)
	m.Extra[types.ExtraResumeNextStage] = r.NextStage
	m.Extra[types.ExtraResumeIssueCount] = strconv.Itoa(len(r.Diagnostics))
	m.Extra[types.ExtraResumeDiagnostics] = strings.Join(r.Diagnostics, " || ")
}

func (r *Report) addIssue(format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf(format, args...))
}

func (r *Report) addPath(p string) {
	for _, existing := range r.Paths {
		if existing == p {
			return
		}
	}
	r.Paths = append(r.Paths, p)
}
