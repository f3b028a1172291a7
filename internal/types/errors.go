package types

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies core pipeline failures.
type Kind string

const (
	KindStructure            Kind = "structure_error"
	KindPlannerInvariant     Kind = "planner_invariant_violation"
	KindBoundaryExhausted    Kind = "boundary_repair_exhausted"
	KindResumeNonRecoverable Kind = "resume_non_recoverable"
)

// Sentinel errors, one per kind. StageError matches them via errors.Is.
var (
	ErrStructure            = errors.New("no structural units could be derived")
	ErrPlannerInvariant     = errors.New("planner invariant violated")
	ErrBoundaryExhausted    = errors.New("no sentence boundary within search window")
	ErrResumeNonRecoverable = errors.New("artifacts are not consistent enough to resume")
)

// StageError is the tagged error surfaced at stage boundaries.
type StageError struct {
	Kind   Kind
	Stage  string
	Detail string
	Hint   string
	Paths  []string
	Err    error
}

// NewStageError creates a StageError of the given kind.
func NewStageError(kind Kind, stage, detail string) *StageError {
	return &StageError{Kind: kind, Stage: stage, Detail: detail}
}

// WithHint sets a remediation hint.
func (e *StageError) WithHint(hint string) *StageError {
	e.Hint = hint
	return e
}

// WithPaths records the artifact paths involved.
func (e *StageError) WithPaths(paths ...string) *StageError {
	e.Paths = append(e.Paths, paths...)
	return e
}

// Wrap records an underlying cause.
func (e *StageError) Wrap(err error) *StageError {
	e.Err = err
	return e
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]: %s", e.Stage, e.Kind, e.Detail)
	if len(e.Paths) > 0 {
		fmt.Fprintf(&b, " (paths: %s)", strings.Join(e.Paths, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *StageError) Is(target error) bool {
	return kindSentinel(e.Kind) == target
}

func kindSentinel(k Kind) error {
	switch k {
	case KindStructure:
		return ErrStructure
	case KindPlannerInvariant:
		return ErrPlannerInvariant
	case KindBoundaryExhausted:
		return ErrBoundaryExhausted
	case KindResumeNonRecoverable:
		return ErrResumeNonRecoverable
	default:
		return nil
	}
}

// KindOf returns the kind of the first StageError in err's chain.
func KindOf(err error) (Kind, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}
