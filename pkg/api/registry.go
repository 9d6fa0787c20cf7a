package api

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry maps step names to steps. It implements StepRegistry.
//
// Registries are plain values owned by whoever builds the pipeline; there is
// no process-wide registry.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
}

var _ StepRegistry = (*Registry)(nil)

// NewRegistry returns a registry holding steps.
func NewRegistry(steps ...Step) (*Registry, error) {
	r := &Registry{steps: make(map[string]Step, len(steps))}
	for _, s := range steps {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds s under s.Name().
func (r *Registry) Register(s Step) error {
	if s == nil {
		return fmt.Errorf("register: nil step")
	}
	name := s.Name()
	if name == "" {
		return fmt.Errorf("register: step name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.steps == nil {
		r.steps = make(map[string]Step)
	}
	if _, ok := r.steps[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStep, name)
	}
	r.steps[name] = s
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(steps ...Step) *Registry {
	for _, s := range steps {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Lookup returns the step registered under name.
func (r *Registry) Lookup(name string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.steps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStep, name)
	}
	return s, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.steps))
}
