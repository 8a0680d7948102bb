package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownDataset indicates a name with no catalog entry.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownStep indicates a preprocessing step name with no registered builder.
	ErrUnknownStep = errors.New("unknown preprocessing step")

	// ErrUnknownCheck indicates a validation check name with no registered builder.
	ErrUnknownCheck = errors.New("unknown validation check")

	// ErrUnsupportedKind indicates a source kind with no fetcher.
	ErrUnsupportedKind = errors.New("unsupported source kind")

	// ErrUnsupportedArchive indicates an archive format that cannot be extracted.
	ErrUnsupportedArchive = errors.New("unsupported archive format")

	// ErrInsufficientSpace indicates the target volume cannot hold the download.
	ErrInsufficientSpace = errors.New("insufficient disk space")

	// ErrNotDownloaded indicates an operation that needs raw data before it has
	// been fetched (e.g. preprocessing a dataset that was never downloaded).
	ErrNotDownloaded = errors.New("dataset not downloaded")

	// ErrValidationFailed indicates one or more validation checks failed.
	ErrValidationFailed = errors.New("validation failed")
)
