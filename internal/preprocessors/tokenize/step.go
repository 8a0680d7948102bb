// Package tokenize splits dataset text into whitespace-separated tokens.
package tokenize

import (
	"context"
	"strings"
	"unicode"

	"github.com/allan-project/allan-cli/internal/core/ports/driven"
)

// Ensure Step implements the interface.
var _ driven.Step = (*Step)(nil)

// Step separates words and punctuation with single spaces, one input
// line per output line. Downstream tooling can then split on spaces.
type Step struct{}

// New creates a tokenisation step.
func New() *Step {
	return &Step{}
}

// Name returns the step name.
func (s *Step) Name() string {
	return "tokenize"
}

// Transform tokenises each line of the content.
func (s *Step) Transform(_ context.Context, content []byte) ([]byte, error) {
	lines := strings.Split(string(content), "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.Join(tokenise(line), " ")
	}
	return []byte(strings.Join(out, "\n")), nil
}

// tokenise splits a line into word and punctuation tokens.
// Letters and digits stick together; every punctuation mark becomes its
// own token. Works on runes so Cyrillic text splits correctly.
func tokenise(line string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range line {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return tokens
}
