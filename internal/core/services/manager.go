// Package services implements the driving ports on top of the driven ones.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
	"github.com/allan-project/allan-cli/internal/core/ports/driving"
	"github.com/allan-project/allan-cli/internal/logger"
)

// Ensure Manager implements the interface.
var _ driving.DatasetManager = (*Manager)(nil)

// DefaultParallelism is the batch download concurrency.
const DefaultParallelism = 2

// spaceSafetyFactor is how much free space a download should leave
// room for, relative to the expected dataset size. Extraction roughly
// doubles the footprint while the archive and its contents coexist.
const spaceSafetyFactor = 2

// SpaceFunc reports total and free bytes of the filesystem holding path.
// Injected so the core stays free of syscall specifics.
type SpaceFunc func(path string) (total, free int64, err error)

// PipelineFunc assembles a step pipeline from catalog step references.
// Returns domain.ErrUnknownStep when a reference has no registered builder.
type PipelineFunc func(refs []domain.StepRef) (driven.StepPipeline, error)

// ProgressFunc receives download progress per dataset.
type ProgressFunc func(dataset string, fetched, total int64)

// preprocessMetaFile is written into the processed stage after a run.
const preprocessMetaFile = "preprocessing.json"

// Manager orchestrates dataset downloads, preprocessing and validation.
type Manager struct {
	layout      domain.Layout
	catalog     driven.Catalog
	fetchers    driven.FetcherRegistry
	checks      driven.CheckRegistry
	manifest    driven.ManifestStore
	space       SpaceFunc
	newPipeline PipelineFunc
	progress    ProgressFunc
	parallelism int
}

// Option configures the manager.
type Option func(*Manager)

// WithSpaceFunc sets the filesystem space probe.
func WithSpaceFunc(fn SpaceFunc) Option {
	return func(m *Manager) { m.space = fn }
}

// WithProgress sets the download progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(m *Manager) { m.progress = fn }
}

// WithParallelism sets the batch download concurrency.
func WithParallelism(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.parallelism = n
		}
	}
}

// NewManager creates a dataset manager.
func NewManager(
	layout domain.Layout,
	catalog driven.Catalog,
	fetchers driven.FetcherRegistry,
	checks driven.CheckRegistry,
	manifest driven.ManifestStore,
	newPipeline PipelineFunc,
	opts ...Option,
) *Manager {
	m := &Manager{
		layout:      layout,
		catalog:     catalog,
		fetchers:    fetchers,
		checks:      checks,
		manifest:    manifest,
		newPipeline: newPipeline,
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// destDir returns the stage directory a dataset downloads into.
// Hub datasets land in the cached stage, direct downloads in raw.
func (m *Manager) destDir(ds *domain.Dataset) string {
	if ds.Kind == domain.KindHub {
		return m.layout.CachedPath(ds.Name)
	}
	return m.layout.RawPath(ds.Name)
}

// Download fetches one dataset and, unless skipped, preprocesses and
// validates it.
func (m *Manager) Download(ctx context.Context, name string, opts driving.DownloadOptions) error {
	ds, err := m.catalog.Get(name)
	if err != nil {
		return err
	}

	dest := m.destDir(ds)

	if !opts.Force && m.alreadyDownloaded(ctx, ds, dest) {
		logger.Info("%s already downloaded, skipping (use --force to re-download)", ds.Name)
		return nil
	}

	if err := m.checkSpace(ds); err != nil {
		return err
	}

	fetcher, err := m.fetchers.ForKind(ds.Kind)
	if err != nil {
		return fmt.Errorf("%w (registered kinds: %v)", err, m.fetchers.Kinds())
	}

	session := domain.DownloadSession{
		ID:        uuid.New().String(),
		Dataset:   ds.Name,
		Source:    ds.Source,
		Kind:      ds.Kind,
		StartedAt: time.Now().UTC(),
	}

	staging := m.layout.TempPath(ds.Name)
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clearing staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	logger.Info("downloading %s from %s", ds.Name, ds.Source)
	result, err := fetcher.Fetch(ctx, *ds, staging, m.progressFor(ds.Name))
	if err != nil {
		session.State = domain.StateFailed
		session.Error = err.Error()
		session.FinishedAt = time.Now().UTC()
		if saveErr := m.manifest.SaveDownload(ctx, session); saveErr != nil {
			logger.Warn("recording failed session: %v", saveErr)
		}
		return fmt.Errorf("fetching %s: %w", ds.Name, err)
	}

	if err := m.promote(staging, dest); err != nil {
		return err
	}

	session.Bytes = result.Bytes
	session.Files = result.Files
	session.Checksum = result.Checksum
	session.State = domain.StateComplete
	session.FinishedAt = time.Now().UTC()
	if err := m.manifest.SaveDownload(ctx, session); err != nil {
		return fmt.Errorf("recording session: %w", err)
	}
	logger.Info("downloaded %s: %d files, %d bytes", ds.Name, result.Files, result.Bytes)

	if !opts.SkipPreprocessing && len(ds.PreprocessSteps) > 0 {
		if err := m.Preprocess(ctx, ds.Name); err != nil {
			return err
		}
	}

	if !opts.SkipValidation && len(ds.ValidationChecks) > 0 {
		results, err := m.Validate(ctx, ds.Name)
		if err != nil {
			return err
		}
		for _, r := range results {
			if !r.Passed {
				logger.Warn("%s: check %s failed: %s", ds.Name, r.Check, r.Detail)
			}
		}
	}

	return nil
}

// alreadyDownloaded reports whether the dataset is present on disk with
// a completed session in the manifest.
func (m *Manager) alreadyDownloaded(ctx context.Context, ds *domain.Dataset, dest string) bool {
	if !dirHasContent(dest) {
		return false
	}
	session, err := m.manifest.LatestDownload(ctx, ds.Name)
	if err != nil {
		// Files exist but no manifest record. Treat as downloaded so a
		// manually placed dataset is not clobbered.
		return errors.Is(err, domain.ErrNotFound)
	}
	return session.State == domain.StateComplete
}

// checkSpace fails when free space cannot hold the dataset and warns
// when the safety margin for extraction is thin.
func (m *Manager) checkSpace(ds *domain.Dataset) error {
	if m.space == nil || ds.SizeBytes() == 0 {
		return nil
	}

	_, free, err := m.space(m.layout.Root)
	if err != nil {
		logger.Warn("disk space check failed: %v", err)
		return nil
	}

	need := ds.SizeBytes()
	if free < need {
		return fmt.Errorf("%w: %s needs %d bytes, %d free", domain.ErrInsufficientSpace, ds.Name, need, free)
	}
	if free < need*spaceSafetyFactor {
		logger.Warn("low disk space for %s: %d bytes free, %d recommended", ds.Name, free, need*spaceSafetyFactor)
	}
	return nil
}

// promote atomically moves the staged download into its stage directory.
func (m *Manager) promote(staging, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating stage directory: %w", err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("clearing previous download: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		return fmt.Errorf("promoting download: %w", err)
	}
	return nil
}

// progressFor adapts the manager progress callback to the fetcher form.
func (m *Manager) progressFor(name string) driven.Progress {
	if m.progress == nil {
		return nil
	}
	return func(fetched, total int64) {
		m.progress(name, fetched, total)
	}
}

// Preprocess applies the dataset's configured steps to its downloaded
// stage and writes the result into the processed stage.
func (m *Manager) Preprocess(ctx context.Context, name string) error {
	ds, err := m.catalog.Get(name)
	if err != nil {
		return err
	}

	srcDir, err := m.downloadedStage(ds)
	if err != nil {
		return err
	}

	pipeline, err := m.newPipeline(ds.PreprocessSteps)
	if err != nil {
		return fmt.Errorf("assembling pipeline for %s: %w", ds.Name, err)
	}

	run := domain.PreprocessRun{
		ID:        uuid.New().String(),
		Dataset:   ds.Name,
		Steps:     ds.PreprocessSteps,
		StartedAt: time.Now().UTC(),
	}

	dest := m.layout.ProcessedPath(ds.Name)
	staging := dest + ".tmp"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clearing staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	logger.Info("preprocessing %s with %d steps", ds.Name, len(ds.PreprocessSteps))
	files, err := pipeline.Run(ctx, srcDir, staging)
	if err != nil {
		run.State = domain.StateFailed
		run.Error = err.Error()
		run.FinishedAt = time.Now().UTC()
		if saveErr := m.manifest.SavePreprocessRun(ctx, run); saveErr != nil {
			logger.Warn("recording failed run: %v", saveErr)
		}
		return fmt.Errorf("preprocessing %s: %w", ds.Name, err)
	}

	if err := m.writePreprocessMeta(staging, ds, files); err != nil {
		return err
	}
	if err := m.promote(staging, dest); err != nil {
		return err
	}

	run.State = domain.StateComplete
	run.FinishedAt = time.Now().UTC()
	if err := m.manifest.SavePreprocessRun(ctx, run); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	logger.Info("preprocessed %s: %d files", ds.Name, files)
	return nil
}

// writePreprocessMeta records what produced the processed stage.
func (m *Manager) writePreprocessMeta(dir string, ds *domain.Dataset, files int) error {
	steps := make([]string, 0, len(ds.PreprocessSteps))
	for _, ref := range ds.PreprocessSteps {
		steps = append(steps, ref.String())
	}

	meta := struct {
		Dataset     string    `json:"dataset"`
		Steps       []string  `json:"steps"`
		Files       int       `json:"files"`
		ProcessedAt time.Time `json:"processed_at"`
	}{
		Dataset:     ds.Name,
		Steps:       steps,
		Files:       files,
		ProcessedAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding preprocessing metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, preprocessMetaFile), data, 0o644); err != nil {
		return fmt.Errorf("writing preprocessing metadata: %w", err)
	}
	return nil
}

// downloadedStage returns the stage holding the dataset's download,
// preferring raw over cached.
func (m *Manager) downloadedStage(ds *domain.Dataset) (string, error) {
	for _, dir := range []string{m.layout.RawPath(ds.Name), m.layout.CachedPath(ds.Name)} {
		if dirHasContent(dir) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrNotDownloaded, ds.Name)
}

// Validate runs the dataset's configured checks and returns their
// individual results. Checks run against the processed stage when it
// exists, otherwise against the downloaded stage.
func (m *Manager) Validate(ctx context.Context, name string) ([]domain.CheckResult, error) {
	ds, err := m.catalog.Get(name)
	if err != nil {
		return nil, err
	}

	dir := m.layout.ProcessedPath(ds.Name)
	if !dirHasContent(dir) {
		dir, err = m.downloadedStage(ds)
		if err != nil {
			return nil, err
		}
	}

	results := make([]domain.CheckResult, 0, len(ds.ValidationChecks))
	for _, checkName := range ds.ValidationChecks {
		check, err := m.checks.Build(checkName)
		if err != nil {
			return nil, fmt.Errorf("building check %s: %w", checkName, err)
		}

		r := domain.CheckResult{Check: checkName, Passed: true}
		if err := check.Run(ctx, dir); err != nil {
			r.Passed = false
			r.Detail = err.Error()
		}
		results = append(results, r)
	}
	return results, nil
}

// Status reports the on-disk state of one dataset.
func (m *Manager) Status(ctx context.Context, name string) (*domain.DatasetStatus, error) {
	ds, err := m.catalog.Get(name)
	if err != nil {
		return nil, err
	}

	status := &domain.DatasetStatus{
		Name:      ds.Name,
		Raw:       stageStatus(m.layout.RawPath(ds.Name)),
		Processed: stageStatus(m.layout.ProcessedPath(ds.Name)),
		Cached:    stageStatus(m.layout.CachedPath(ds.Name)),
	}

	session, err := m.manifest.LatestDownload(ctx, ds.Name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		status.LastDownload = session
	}

	return status, nil
}

// Usage reports volume and per-stage disk consumption.
func (m *Manager) Usage(_ context.Context) (*domain.DiskUsage, error) {
	usage := &domain.DiskUsage{}

	if m.space != nil {
		total, free, err := m.space(m.layout.Root)
		if err != nil {
			return nil, err
		}
		usage.TotalBytes = total
		usage.FreeBytes = free
		usage.UsedBytes = total - free
	}

	var err error
	if usage.RawBytes, err = dirSize(m.layout.RawDir()); err != nil {
		return nil, err
	}
	if usage.ProcessedBytes, err = dirSize(m.layout.ProcessedDir()); err != nil {
		return nil, err
	}
	if usage.CachedBytes, err = dirSize(m.layout.CachedDir()); err != nil {
		return nil, err
	}
	if usage.TempBytes, err = dirSize(m.layout.TempDir()); err != nil {
		return nil, err
	}
	usage.DatasetsBytes = usage.RawBytes + usage.ProcessedBytes + usage.CachedBytes + usage.TempBytes

	return usage, nil
}

// Clean removes and recreates the temp stage, and the cached stage when
// cache is true. Returns bytes reclaimed.
func (m *Manager) Clean(_ context.Context, cache bool) (int64, error) {
	dirs := []string{m.layout.TempDir()}
	if cache {
		dirs = append(dirs, m.layout.CachedDir())
	}

	var reclaimed int64
	for _, dir := range dirs {
		size, err := dirSize(dir)
		if err != nil {
			return reclaimed, err
		}
		if err := os.RemoveAll(dir); err != nil {
			return reclaimed, fmt.Errorf("removing %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return reclaimed, fmt.Errorf("recreating %s: %w", dir, err)
		}
		reclaimed += size
		logger.Info("cleaned %s, reclaimed %d bytes", dir, size)
	}
	return reclaimed, nil
}

// stageStatus inspects one stage directory of a dataset.
func stageStatus(path string) domain.StageStatus {
	info, err := os.Stat(path)
	if err != nil {
		return domain.StageStatus{}
	}

	size, err := dirSize(path)
	if err != nil {
		size = 0
	}

	return domain.StageStatus{
		Exists:       true,
		SizeBytes:    size,
		LastModified: info.ModTime(),
	}
}

// dirSize sums regular file sizes under a directory tree.
// A missing directory counts as zero.
func dirSize(path string) (int64, error) {
	var total int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// dirHasContent reports whether a directory exists and is non-empty.
func dirHasContent(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}
