// Package preprocessors provides text preprocessing for downloaded datasets.
package preprocessors

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
	"github.com/allan-project/allan-cli/internal/logger"
)

var _ driven.StepPipeline = (*Pipeline)(nil)

// textExtensions are the file types the pipeline transforms.
// Everything else is copied through untouched.
var textExtensions = map[string]bool{
	".txt":   true,
	".csv":   true,
	".tsv":   true,
	".json":  true,
	".jsonl": true,
	".md":    true,
	".xml":   true,
	".html":  true,
}

// Pipeline chains steps and applies them to every text file of a
// directory tree. It implements the StepPipeline interface.
type Pipeline struct {
	steps []driven.Step
}

// NewPipeline creates a pipeline with the given steps.
// Steps are executed in the order provided.
func NewPipeline(steps ...driven.Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// FromRefs builds a pipeline from catalog step references using the registry.
func FromRefs(reg driven.StepRegistry, refs []domain.StepRef) (*Pipeline, error) {
	steps := make([]driven.Step, 0, len(refs))
	for _, ref := range refs {
		step, err := reg.Build(ref.Name, ref.Params)
		if err != nil {
			return nil, fmt.Errorf("building step %s: %w", ref.Name, err)
		}
		steps = append(steps, step)
	}
	return NewPipeline(steps...), nil
}

// Add appends a step to the pipeline.
func (p *Pipeline) Add(step driven.Step) {
	p.steps = append(p.steps, step)
}

// Len returns the number of steps in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Run walks srcDir and writes transformed files under dstDir with the
// same relative paths. Non-text files are copied verbatim.
// Returns the number of files written.
func (p *Pipeline) Run(ctx context.Context, srcDir, dstDir string) (int, error) {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	files := 0
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstDir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}

		if textExtensions[strings.ToLower(filepath.Ext(path))] {
			if err := p.transformFile(ctx, path, target); err != nil {
				return fmt.Errorf("processing %s: %w", rel, err)
			}
		} else {
			logger.Debug("copying %s through unchanged", rel)
			if err := copyFile(path, target); err != nil {
				return fmt.Errorf("copying %s: %w", rel, err)
			}
		}

		files++
		return nil
	})
	if err != nil {
		return files, err
	}
	return files, nil
}

// transformFile runs the file content through all steps in order.
func (p *Pipeline) transformFile(ctx context.Context, src, dst string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	for _, step := range p.steps {
		content, err = step.Transform(ctx, content)
		if err != nil {
			return fmt.Errorf("step %s: %w", step.Name(), err)
		}
	}

	return os.WriteFile(dst, content, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
