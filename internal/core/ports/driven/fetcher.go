package driven

import (
	"context"

	"github.com/allan-project/allan-cli/internal/core/domain"
)

// Progress reports download progress. Called with bytes fetched so far and
// the expected total, which is 0 when the source does not report a size.
type Progress func(fetched, total int64)

// FetchResult describes a completed fetch.
type FetchResult struct {
	// Bytes fetched over the wire.
	Bytes int64

	// Files written under the destination directory.
	Files int

	// Checksum is the SHA-256 hex digest of the fetched artifact.
	// For multi-file downloads it covers the files in listing order.
	Checksum string
}

// Fetcher downloads one dataset into a destination directory.
// Each source kind (url, hub) has its own implementation.
type Fetcher interface {
	// Kind returns the source kind this fetcher serves.
	Kind() domain.SourceKind

	// Fetch downloads the dataset into destDir. Archives are extracted so
	// destDir contains the final file tree; destDir must not be reused
	// between attempts. Progress may be nil.
	Fetch(ctx context.Context, ds domain.Dataset, destDir string, progress Progress) (*FetchResult, error)
}

// FetcherRegistry selects the fetcher for a source kind.
type FetcherRegistry interface {
	// ForKind returns the fetcher for a kind.
	// Returns domain.ErrUnsupportedKind if no fetcher is registered.
	ForKind(kind domain.SourceKind) (Fetcher, error)

	// Kinds lists the registered source kinds, sorted.
	Kinds() []domain.SourceKind
}
