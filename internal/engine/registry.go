package engine

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/petrijr/conduit/pkg/api"
)

type pipelineRegistry struct {
	mu     sync.RWMutex
	byName map[string]api.PipelineDefinition
}

func newPipelineRegistry() *pipelineRegistry {
	return &pipelineRegistry{
		byName: make(map[string]api.PipelineDefinition),
	}
}

func (r *pipelineRegistry) Register(def api.PipelineDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[def.Name]; exists {
		return fmt.Errorf("%w: %s", api.ErrPipelineExists, def.Name)
	}

	// Copy the step slice so later appends by the caller do not leak in.
	def.Steps = slices.Clone(def.Steps)
	r.byName[def.Name] = def
	return nil
}

func (r *pipelineRegistry) Get(name string) (api.PipelineDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.byName[name]
	if !ok {
		return api.PipelineDefinition{}, fmt.Errorf("%w: %s", api.ErrPipelineNotFound, name)
	}
	return def, nil
}

func (r *pipelineRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.byName))
}
