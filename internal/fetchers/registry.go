// Package fetchers assembles the per-kind dataset fetchers.
package fetchers

import (
	"fmt"
	"sort"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
)

var _ driven.FetcherRegistry = (*Registry)(nil)

// Registry maps source kinds to fetchers.
type Registry struct {
	byKind map[domain.SourceKind]driven.Fetcher
}

// NewRegistry creates a registry from the given fetchers.
// Later fetchers win when two claim the same kind.
func NewRegistry(fetchers ...driven.Fetcher) *Registry {
	r := &Registry{byKind: make(map[domain.SourceKind]driven.Fetcher, len(fetchers))}
	for _, f := range fetchers {
		r.byKind[f.Kind()] = f
	}
	return r
}

// ForKind returns the fetcher registered for a kind.
func (r *Registry) ForKind(kind domain.SourceKind) (driven.Fetcher, error) {
	f, ok := r.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedKind, kind)
	}
	return f, nil
}

// Kinds lists the registered source kinds, sorted.
func (r *Registry) Kinds() []domain.SourceKind {
	kinds := make([]domain.SourceKind, 0, len(r.byKind))
	for k := range r.byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
