package driven

import "context"

// Step transforms the content of one text file.
// Steps are chained by the pipeline in catalog order.
type Step interface {
	// Name returns the step name for logging and configuration.
	Name() string

	// Transform takes file content and returns the transformed content.
	Transform(ctx context.Context, content []byte) ([]byte, error)
}

// StepPipeline applies a chain of steps to every text file of a stage
// directory, writing results under the destination directory with the
// same relative paths.
type StepPipeline interface {
	// Run walks srcDir and writes transformed files under dstDir.
	// Returns the number of files written.
	Run(ctx context.Context, srcDir, dstDir string) (int, error)
}

// StepRegistry builds steps by name from generic parameters.
type StepRegistry interface {
	// Build creates a step by name.
	// Returns domain.ErrUnknownStep if the name is not registered.
	Build(name string, params map[string]any) (Step, error)

	// Has reports whether a step name is registered.
	Has(name string) bool

	// Names returns all registered step names.
	Names() []string
}
