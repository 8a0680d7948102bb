// Package textclean normalises raw dataset text.
package textclean

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/allan-project/allan-cli/internal/core/ports/driven"
)

// Ensure Step implements the interface.
var _ driven.Step = (*Step)(nil)

// Pre-compiled regular expressions for cleaning performance.
var (
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Step strips control characters, normalises line endings and collapses
// runs of whitespace. Line structure is preserved.
type Step struct{}

// New creates a text cleaning step.
func New() *Step {
	return &Step{}
}

// Name returns the step name.
func (s *Step) Name() string {
	return "text_cleaning"
}

// Transform cleans the content.
func (s *Step) Transform(_ context.Context, content []byte) ([]byte, error) {
	text := string(content)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '�' {
			return -1
		}
		return r
	}, text)

	text = multiSpaces.ReplaceAllString(text, " ")
	text = multiNewlines.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	return []byte(strings.TrimSpace(text) + "\n"), nil
}
