package driven

import (
	"context"

	"github.com/allan-project/allan-cli/internal/core/domain"
)

// ManifestStore persists download sessions and preprocessing runs.
// It is the record the idempotency check consults before re-downloading.
type ManifestStore interface {
	// SaveDownload stores or updates a download session.
	SaveDownload(ctx context.Context, session domain.DownloadSession) error

	// LatestDownload returns the most recent session for a dataset.
	// Returns domain.ErrNotFound if the dataset was never downloaded.
	LatestDownload(ctx context.Context, dataset string) (*domain.DownloadSession, error)

	// ListDownloads returns all sessions for a dataset, newest first.
	ListDownloads(ctx context.Context, dataset string) ([]domain.DownloadSession, error)

	// SavePreprocessRun stores or updates a preprocessing run.
	SavePreprocessRun(ctx context.Context, run domain.PreprocessRun) error

	// LatestPreprocessRun returns the most recent run for a dataset.
	// Returns domain.ErrNotFound if the dataset was never preprocessed.
	LatestPreprocessRun(ctx context.Context, dataset string) (*domain.PreprocessRun, error)

	// Close releases the underlying store.
	Close() error
}
