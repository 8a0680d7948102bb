// Package lowercase folds dataset text to lower case.
package lowercase

import (
	"bytes"
	"context"

	"github.com/allan-project/allan-cli/internal/core/ports/driven"
)

// Ensure Step implements the interface.
var _ driven.Step = (*Step)(nil)

// Step lowercases all content. bytes.ToLower handles Cyrillic.
type Step struct{}

// New creates a lowercasing step.
func New() *Step {
	return &Step{}
}

// Name returns the step name.
func (s *Step) Name() string {
	return "lowercase"
}

// Transform lowercases the content.
func (s *Step) Transform(_ context.Context, content []byte) ([]byte, error) {
	return bytes.ToLower(content), nil
}
