package preprocessors

import (
	"fmt"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
)

// BuilderFunc creates a Step from generic parameters.
// Params is a map of step-specific settings parsed from the catalog.
type BuilderFunc func(params map[string]any) (driven.Step, error)

// Registry maps step names to their builders.
// It allows dynamic construction of steps from catalog entries.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a new step registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a step builder to the registry.
// Name should be unique and match the step's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a step by name with the given parameters.
func (r *Registry) Build(name string, params map[string]any) (driven.Step, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownStep, name)
	}
	return builder(params)
}

// Has returns true if a step with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered step names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	return names
}
