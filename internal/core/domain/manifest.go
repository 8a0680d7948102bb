package domain

import "time"

// SessionState is the terminal state of a recorded session.
type SessionState string

const (
	// StateComplete marks a successful session.
	StateComplete SessionState = "complete"

	// StateFailed marks a session that ended with an error.
	StateFailed SessionState = "failed"
)

// DownloadSession records one download attempt in the manifest store.
type DownloadSession struct {
	// ID is a generated uuid.
	ID string

	// Dataset is the catalog name.
	Dataset string

	// Source and Kind are copied from the catalog entry at download time.
	Source string
	Kind   SourceKind

	// Bytes is the number of bytes fetched.
	Bytes int64

	// Files is the number of files written to the destination stage.
	Files int

	// Checksum is the SHA-256 of the fetched artifact. For multi-file hub
	// downloads it covers the concatenation in listing order.
	Checksum string

	// State is the session outcome.
	State SessionState

	// Error holds the failure message when State is StateFailed.
	Error string

	// StartedAt and FinishedAt bound the session.
	StartedAt  time.Time
	FinishedAt time.Time
}

// PreprocessRun records one pipeline execution in the manifest store.
type PreprocessRun struct {
	// ID is a generated uuid.
	ID string

	// Dataset is the catalog name.
	Dataset string

	// Steps are the step references applied, in order.
	Steps []StepRef

	// State is the run outcome.
	State SessionState

	// Error holds the failure message when State is StateFailed.
	Error string

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// CheckResult is the outcome of a single validation check.
type CheckResult struct {
	// Check is the registered check name.
	Check string

	// Passed reports whether the check succeeded.
	Passed bool

	// Detail explains a failure; empty on success.
	Detail string
}
