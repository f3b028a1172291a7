package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for the pipeline package.
var (
	// ErrStageAlreadyRegistered is returned when registering a duplicate stage.
	ErrStageAlreadyRegistered = errors.New("stage already registered")

	// ErrStageNotFound is returned when a stage dependency is not found.
	ErrStageNotFound = errors.New("stage not found")

	// ErrDependencyCycle is returned when stage dependencies form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle detected")
)

// Registry manages available stages and their dependencies.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Stage
	order  []string // Maintains registration order
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{
		stages: make(map[string]Stage),
		order:  make([]string, 0),
	}
}

// Register adds a stage to the registry.
// Returns an error if a stage with the same name is already registered.
func (r *Registry) Register(s Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.stages[name]; exists {
		return fmt.Errorf("%w: %s", ErrStageAlreadyRegistered, name)
	}

	r.stages[name] = s
	r.order = append(r.order, name)
	return nil
}

// GetOrdered returns stages sorted by dependencies.
// When multiple stages have the same dependency level, registration
// order is preserved.
func (r *Registry) GetOrdered() ([]Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ordered()
}

func (r *Registry) ordered() ([]Stage, error) {
	inDegree := make(map[string]int, len(r.order))
	for _, name := range r.order {
		for _, dep := range r.stages[name].Dependencies() {
			if _, ok := r.stages[dep]; !ok {
				return nil, fmt.Errorf("%w: stage %q depends on %q", ErrStageNotFound, name, dep)
			}
		}
		inDegree[name] = len(r.stages[name].Dependencies())
	}

	// Kahn's algorithm, queueing in registration order for stable output
	var queue []string
	for _, name := range r.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	var ordered []Stage
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		ordered = append(ordered, r.stages[name])

		for _, s := range r.dependents(name) {
			inDegree[s.Name()]--
			if inDegree[s.Name()] == 0 {
				queue = append(queue, s.Name())
			}
		}
	}

	if len(ordered) != len(r.stages) {
		return nil, ErrDependencyCycle
	}
	return ordered, nil
}

// Validate checks that all stage dependencies exist and form no cycle.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, err := r.ordered()
	return err
}

// Downstream returns the names of the given stage and every stage that
// transitively depends on it.
func (r *Registry) Downstream(name string) map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]bool)
	if _, ok := r.stages[name]; !ok {
		return out
	}
	queue := []string{name}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if out[n] {
			continue
		}
		out[n] = true
		for _, s := range r.dependents(n) {
			queue = append(queue, s.Name())
		}
	}
	return out
}

// dependents returns the stages that depend on name, in registration order.
func (r *Registry) dependents(name string) []Stage {
	var dependents []Stage
	for _, n := range r.order {
		stage := r.stages[n]
		for _, dep := range stage.Dependencies() {
			if dep == name {
				dependents = append(dependents, stage)
				break
			}
		}
	}
	return dependents
}
