// Package truncate caps the length of dataset text lines.
package truncate

import (
	"context"
	"strings"

	"github.com/allan-project/allan-cli/internal/core/ports/driven"
)

// Ensure Step implements the interface.
var _ driven.Step = (*Step)(nil)

// DefaultMaxLength is the per-line rune cap when none is configured.
const DefaultMaxLength = 512

// Step truncates each line to a maximum number of runes.
// Counting runes rather than bytes keeps Cyrillic text intact.
type Step struct {
	maxLength int
}

// Option configures the step.
type Option func(*Step)

// WithMaxLength sets the per-line rune cap.
func WithMaxLength(n int) Option {
	return func(s *Step) {
		if n > 0 {
			s.maxLength = n
		}
	}
}

// New creates a truncation step.
func New(opts ...Option) *Step {
	s := &Step{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *Step) Name() string {
	return "truncate"
}

// MaxLength returns the configured per-line cap.
func (s *Step) MaxLength() int {
	return s.maxLength
}

// Transform truncates each line of the content.
func (s *Step) Transform(_ context.Context, content []byte) ([]byte, error) {
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		runes := []rune(line)
		if len(runes) > s.maxLength {
			lines[i] = string(runes[:s.maxLength])
		}
	}
	return []byte(strings.Join(lines, "\n")), nil
}
