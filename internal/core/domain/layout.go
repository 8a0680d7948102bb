package domain

import "path/filepath"

// Layout maps the fixed project directory tree under a single root.
// The tree mirrors the drive structure the training notebooks expect:
// datasets/{raw,processed,cached,temp} plus models, configs, logs, results.
type Layout struct {
	// Root is the project base directory.
	Root string
}

// NewLayout creates a layout rooted at the given directory.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// DatasetsDir is the parent of all dataset stages.
func (l Layout) DatasetsDir() string { return filepath.Join(l.Root, "datasets") }

// RawDir holds unmodified downloaded datasets.
func (l Layout) RawDir() string { return filepath.Join(l.DatasetsDir(), "raw") }

// ProcessedDir holds preprocessed datasets.
func (l Layout) ProcessedDir() string { return filepath.Join(l.DatasetsDir(), "processed") }

// CachedDir holds Hub datasets saved for reuse.
func (l Layout) CachedDir() string { return filepath.Join(l.DatasetsDir(), "cached") }

// TempDir holds in-flight downloads and extraction staging.
func (l Layout) TempDir() string { return filepath.Join(l.DatasetsDir(), "temp") }

// ModelsDir holds checkpoints and final models.
func (l Layout) ModelsDir() string { return filepath.Join(l.Root, "models") }

// ConfigsDir holds training and data configuration files.
func (l Layout) ConfigsDir() string { return filepath.Join(l.Root, "configs") }

// LogsDir holds training logs and monitor session reports.
func (l Layout) LogsDir() string { return filepath.Join(l.Root, "logs") }

// ResultsDir holds metrics and evaluation output.
func (l Layout) ResultsDir() string { return filepath.Join(l.Root, "results") }

// RawPath returns the raw stage directory for a dataset.
func (l Layout) RawPath(name string) string { return filepath.Join(l.RawDir(), name) }

// ProcessedPath returns the processed stage directory for a dataset.
func (l Layout) ProcessedPath(name string) string { return filepath.Join(l.ProcessedDir(), name) }

// CachedPath returns the cache stage directory for a dataset.
func (l Layout) CachedPath(name string) string { return filepath.Join(l.CachedDir(), name) }

// TempPath returns the staging directory for a dataset download.
func (l Layout) TempPath(name string) string { return filepath.Join(l.TempDir(), name) }

// StageDirs lists the dataset stage directories that must exist.
func (l Layout) StageDirs() []string {
	return []string{l.RawDir(), l.ProcessedDir(), l.CachedDir(), l.TempDir()}
}
