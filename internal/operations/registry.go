package operations

import (
	"fmt"
	"sync"
)

// Registry holds the pipeline steps in execution order. Steps that
// implement Dataflow are checked on registration: every value a step
// reads must be written by a step registered before it.
type Registry struct {
	mu       sync.RWMutex
	steps    []Step
	index    map[string]int
	provider map[string]string // context key -> ID of the step writing it
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		index:    make(map[string]int),
		provider: make(map[string]string),
	}
}

// Register appends step to the pipeline
func (r *Registry) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("cannot register nil step")
	}
	id := step.ID()
	if id == "" {
		return fmt.Errorf("step ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[id]; exists {
		return fmt.Errorf("step %s already registered", id)
	}

	flow, ok := step.(Dataflow)
	if ok {
		for _, key := range flow.Requires() {
			if _, provided := r.provider[key]; !provided {
				return fmt.Errorf("step %s reads %q before any step provides it", id, key)
			}
		}
	}

	r.index[id] = len(r.steps)
	r.steps = append(r.steps, step)
	if ok {
		for _, key := range flow.Provides() {
			r.provider[key] = id
		}
	}
	return nil
}

// List returns the steps in execution order
func (r *Registry) List() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := make([]Step, len(r.steps))
	copy(steps, r.steps)
	return steps
}
