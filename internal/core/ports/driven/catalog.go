package driven

import "github.com/allan-project/allan-cli/internal/core/domain"

// Catalog provides read-only access to the dataset configuration table.
// The table is loaded once at start-up and never mutated.
type Catalog interface {
	// Get returns the entry for a dataset name.
	// Returns domain.ErrUnknownDataset if the name is not configured.
	Get(name string) (*domain.Dataset, error)

	// List returns all entries sorted by name.
	List() []domain.Dataset

	// ListByTask returns entries for one task type, sorted by name.
	ListByTask(taskType string) []domain.Dataset

	// FilterByMaxSize returns entries no larger than maxMB,
	// sorted by size descending.
	FilterByMaxSize(maxMB float64) []domain.Dataset

	// TaskTypes returns the distinct task types present, sorted.
	TaskTypes() []string
}
