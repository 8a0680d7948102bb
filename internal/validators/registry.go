// Package validators runs quality checks against processed datasets.
package validators

import (
	"fmt"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
)

// BuilderFunc creates a Check.
type BuilderFunc func() (driven.Check, error)

// Registry maps check names to their builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a new check registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a check builder to the registry.
// Name should be unique and match the check's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a check by name.
func (r *Registry) Build(name string) (driven.Check, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCheck, name)
	}
	return builder()
}

// Has returns true if a check with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered check names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	return names
}

// RegisterDefaults registers all built-in checks with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("russian_text", func() (driven.Check, error) {
		return NewRussianText(), nil
	})
	r.Register("text_format", func() (driven.Check, error) {
		return NewTextFormat(), nil
	})
	r.Register("qa_format", func() (driven.Check, error) {
		return NewQAFormat(), nil
	})
	r.Register("classification_format", func() (driven.Check, error) {
		return NewClassificationFormat(), nil
	})
	r.Register("sentiment_format", func() (driven.Check, error) {
		return NewSentimentFormat(), nil
	})
}
