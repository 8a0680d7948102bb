package services

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/allan-project/allan-cli/internal/core/ports/driving"
	"github.com/allan-project/allan-cli/internal/logger"
)

// DownloadAll runs Download for several datasets with bounded
// parallelism and returns per-dataset outcomes. One failing dataset
// does not stop the others.
func (m *Manager) DownloadAll(
	ctx context.Context,
	names []string,
	opts driving.DownloadOptions,
) driving.BatchResult {
	result := make(driving.BatchResult, len(names))
	var mu sync.Mutex

	// Concurrent workers would interleave carriage-return progress lines
	// on one terminal row, so batches run without per-byte progress.
	worker := m
	if len(names) > 1 && m.progress != nil {
		quiet := *m
		quiet.progress = nil
		worker = &quiet
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.parallelism)

	logger.Info("downloading %d datasets with parallelism %d", len(names), m.parallelism)
	for _, name := range names {
		g.Go(func() error {
			err := worker.Download(ctx, name, opts)
			mu.Lock()
			result[name] = err
			mu.Unlock()
			if err != nil {
				logger.Error("%s: %v", name, err)
			}
			// Errors are collected per dataset, not propagated, so the
			// group keeps the remaining downloads running.
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers always return nil

	return result
}
