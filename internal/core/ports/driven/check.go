package driven

import "context"

// Check validates one property of a processed dataset directory.
type Check interface {
	// Name returns the check name for logging and configuration.
	Name() string

	// Run inspects the directory. A nil error means the check passed;
	// a non-nil error carries the failure detail.
	Run(ctx context.Context, dir string) error
}

// CheckRegistry builds validation checks by name.
type CheckRegistry interface {
	// Build creates a check by name.
	// Returns domain.ErrUnknownCheck if the name is not registered.
	Build(name string) (Check, error)

	// Has reports whether a check name is registered.
	Has(name string) bool

	// Names returns all registered check names.
	Names() []string
}
