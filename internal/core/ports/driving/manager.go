package driving

import (
	"context"

	"github.com/allan-project/allan-cli/internal/core/domain"
)

// DownloadOptions tune a download request.
type DownloadOptions struct {
	// Force re-downloads even if the dataset is already present.
	Force bool

	// SkipPreprocessing downloads only, leaving the processed stage untouched.
	SkipPreprocessing bool

	// SkipValidation downloads (and preprocesses) without running checks.
	SkipValidation bool
}

// BatchResult maps dataset names to their per-dataset outcome.
// A nil error means the dataset was downloaded and prepared successfully.
type BatchResult map[string]error

// Succeeded counts successful datasets.
func (r BatchResult) Succeeded() int {
	n := 0
	for _, err := range r {
		if err == nil {
			n++
		}
	}
	return n
}

// DatasetManager is the primary entry point for dataset operations.
type DatasetManager interface {
	// Download fetches one dataset and, unless skipped, preprocesses and
	// validates it. Already-downloaded datasets are skipped unless Force.
	Download(ctx context.Context, name string, opts DownloadOptions) error

	// DownloadAll runs Download for several datasets with bounded
	// parallelism and returns per-dataset outcomes.
	DownloadAll(ctx context.Context, names []string, opts DownloadOptions) BatchResult

	// Preprocess applies the dataset's configured steps to its raw stage.
	Preprocess(ctx context.Context, name string) error

	// Validate runs the dataset's configured checks against its processed
	// stage and returns individual results. The error is non-nil only when
	// the checks could not be run at all.
	Validate(ctx context.Context, name string) ([]domain.CheckResult, error)

	// Status reports the on-disk state of one dataset.
	Status(ctx context.Context, name string) (*domain.DatasetStatus, error)

	// Usage reports volume and per-stage disk consumption.
	Usage(ctx context.Context) (*domain.DiskUsage, error)

	// Clean removes and recreates the temp stage. When cache is true the
	// cached stage is cleared as well. Returns bytes reclaimed.
	Clean(ctx context.Context, cache bool) (int64, error)
}
