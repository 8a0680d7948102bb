package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
	"github.com/allan-project/allan-cli/internal/core/ports/driving"
)

// fakeCatalog serves a fixed dataset table.
type fakeCatalog struct {
	datasets map[string]domain.Dataset
}

func (c *fakeCatalog) Get(name string) (*domain.Dataset, error) {
	ds, ok := c.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDataset, name)
	}
	return &ds, nil
}

func (c *fakeCatalog) List() []domain.Dataset {
	out := make([]domain.Dataset, 0, len(c.datasets))
	for _, ds := range c.datasets {
		out = append(out, ds)
	}
	return out
}

func (c *fakeCatalog) ListByTask(string) []domain.Dataset      { return nil }
func (c *fakeCatalog) FilterByMaxSize(float64) []domain.Dataset { return nil }
func (c *fakeCatalog) TaskTypes() []string                      { return nil }

// fakeFetcher writes a single payload file into the destination.
type fakeFetcher struct {
	kind    domain.SourceKind
	payload string
	err     error

	mu    sync.Mutex
	calls int
}

func (f *fakeFetcher) Kind() domain.SourceKind { return f.kind }

func (f *fakeFetcher) Fetch(_ context.Context, ds domain.Dataset, destDir string, progress driven.Progress) (*driven.FetchResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(destDir, "data.txt"), []byte(f.payload), 0o644); err != nil {
		return nil, err
	}
	if progress != nil {
		progress(int64(len(f.payload)), int64(len(f.payload)))
	}
	return &driven.FetchResult{
		Bytes:    int64(len(f.payload)),
		Files:    1,
		Checksum: "deadbeef",
	}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFetcherRegistry struct {
	fetchers map[domain.SourceKind]driven.Fetcher
}

func (r *fakeFetcherRegistry) ForKind(kind domain.SourceKind) (driven.Fetcher, error) {
	f, ok := r.fetchers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedKind, kind)
	}
	return f, nil
}

func (r *fakeFetcherRegistry) Kinds() []domain.SourceKind {
	return []domain.SourceKind{domain.KindURL}
}

// upperStep uppercases content, making transformations visible in tests.
type upperStep struct{}

func (upperStep) Name() string { return "upper" }

func (upperStep) Transform(_ context.Context, content []byte) ([]byte, error) {
	return []byte(strings.ToUpper(string(content))), nil
}

// buildFakePipeline assembles a fakePipeline from step references,
// knowing only the "upper" step.
func buildFakePipeline(refs []domain.StepRef) (driven.StepPipeline, error) {
	steps := make([]driven.Step, 0, len(refs))
	for _, ref := range refs {
		if ref.Name != "upper" {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownStep, ref.Name)
		}
		steps = append(steps, upperStep{})
	}
	return &fakePipeline{steps: steps}, nil
}

// fakeCheck passes or fails depending on its configured error.
type fakeCheck struct {
	name string
	err  error
}

func (c fakeCheck) Name() string                        { return c.name }
func (c fakeCheck) Run(context.Context, string) error   { return c.err }

type fakeCheckRegistry struct {
	checks map[string]fakeCheck
}

func (r *fakeCheckRegistry) Build(name string) (driven.Check, error) {
	c, ok := r.checks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCheck, name)
	}
	return c, nil
}

func (r *fakeCheckRegistry) Has(name string) bool { _, ok := r.checks[name]; return ok }
func (r *fakeCheckRegistry) Names() []string      { return nil }

// fakeManifest keeps sessions in memory.
type fakeManifest struct {
	mu        sync.Mutex
	downloads map[string][]domain.DownloadSession
	runs      map[string][]domain.PreprocessRun
}

func newFakeManifest() *fakeManifest {
	return &fakeManifest{
		downloads: make(map[string][]domain.DownloadSession),
		runs:      make(map[string][]domain.PreprocessRun),
	}
}

func (m *fakeManifest) SaveDownload(_ context.Context, s domain.DownloadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads[s.Dataset] = append(m.downloads[s.Dataset], s)
	return nil
}

func (m *fakeManifest) LatestDownload(_ context.Context, dataset string) (*domain.DownloadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := m.downloads[dataset]
	if len(sessions) == 0 {
		return nil, domain.ErrNotFound
	}
	latest := sessions[len(sessions)-1]
	return &latest, nil
}

func (m *fakeManifest) ListDownloads(_ context.Context, dataset string) ([]domain.DownloadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.downloads[dataset], nil
}

func (m *fakeManifest) SavePreprocessRun(_ context.Context, r domain.PreprocessRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.Dataset] = append(m.runs[r.Dataset], r)
	return nil
}

func (m *fakeManifest) LatestPreprocessRun(_ context.Context, dataset string) (*domain.PreprocessRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := m.runs[dataset]
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	latest := runs[len(runs)-1]
	return &latest, nil
}

func (m *fakeManifest) Close() error { return nil }

// fakePipeline applies steps to every file of the source tree.
type fakePipeline struct {
	steps []driven.Step
}

func (p *fakePipeline) Run(ctx context.Context, srcDir, dstDir string) (int, error) {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return 0, err
	}
	files := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(srcDir, entry.Name()))
		if err != nil {
			return files, err
		}
		for _, step := range p.steps {
			if content, err = step.Transform(ctx, content); err != nil {
				return files, err
			}
		}
		if err := os.WriteFile(filepath.Join(dstDir, entry.Name()), content, 0o644); err != nil {
			return files, err
		}
		files++
	}
	return files, nil
}

// testEnv bundles the manager with its fakes for one test.
type testEnv struct {
	manager  *Manager
	layout   domain.Layout
	fetcher  *fakeFetcher
	manifest *fakeManifest
	checks   *fakeCheckRegistry
}

func newTestEnv(t *testing.T, datasets ...domain.Dataset) *testEnv {
	t.Helper()
	layout := domain.NewLayout(t.TempDir())

	catalog := &fakeCatalog{datasets: make(map[string]domain.Dataset)}
	for _, ds := range datasets {
		catalog.datasets[ds.Name] = ds
	}

	fetcher := &fakeFetcher{kind: domain.KindURL, payload: "привет мир\n"}
	checks := &fakeCheckRegistry{checks: map[string]fakeCheck{
		"russian_text": {name: "russian_text"},
	}}
	manifest := newFakeManifest()

	manager := NewManager(
		layout, catalog,
		&fakeFetcherRegistry{fetchers: map[domain.SourceKind]driven.Fetcher{domain.KindURL: fetcher}},
		checks, manifest, buildFakePipeline,
	)

	return &testEnv{manager: manager, layout: layout, fetcher: fetcher, manifest: manifest, checks: checks}
}

func urlDataset(name string) domain.Dataset {
	return domain.Dataset{
		Name:   name,
		Source: "https://example.com/" + name + ".zip",
		Kind:   domain.KindURL,
		Format: domain.FormatZip,
		SizeMB: 1,
	}
}

func TestDownload_HappyPath(t *testing.T) {
	env := newTestEnv(t, urlDataset("lenta_news"))
	ctx := context.Background()

	err := env.manager.Download(ctx, "lenta_news", driving.DownloadOptions{})
	require.NoError(t, err)

	// The payload landed in the raw stage.
	assert.FileExists(t, filepath.Join(env.layout.RawPath("lenta_news"), "data.txt"))

	// Nothing left behind in the temp stage.
	assert.NoDirExists(t, env.layout.TempPath("lenta_news"))

	// A complete session was recorded.
	session, err := env.manifest.LatestDownload(ctx, "lenta_news")
	require.NoError(t, err)
	assert.Equal(t, domain.StateComplete, session.State)
	assert.Equal(t, 1, session.Files)
	assert.NotEmpty(t, session.ID)
}

func TestDownload_UnknownDataset(t *testing.T) {
	env := newTestEnv(t)

	err := env.manager.Download(context.Background(), "nope", driving.DownloadOptions{})
	assert.ErrorIs(t, err, domain.ErrUnknownDataset)
}

func TestDownload_SkipsWhenPresent(t *testing.T) {
	env := newTestEnv(t, urlDataset("lenta_news"))
	ctx := context.Background()

	require.NoError(t, env.manager.Download(ctx, "lenta_news", driving.DownloadOptions{}))
	require.NoError(t, env.manager.Download(ctx, "lenta_news", driving.DownloadOptions{}))

	assert.Equal(t, 1, env.fetcher.callCount())
}

func TestDownload_ForceRedownloads(t *testing.T) {
	env := newTestEnv(t, urlDataset("lenta_news"))
	ctx := context.Background()

	require.NoError(t, env.manager.Download(ctx, "lenta_news", driving.DownloadOptions{}))
	require.NoError(t, env.manager.Download(ctx, "lenta_news", driving.DownloadOptions{Force: true}))

	assert.Equal(t, 2, env.fetcher.callCount())
}

func TestDownload_ManualFilesNotClobbered(t *testing.T) {
	env := newTestEnv(t, urlDataset("lenta_news"))

	// Files on disk with no manifest record, as if placed by hand.
	dest := env.layout.RawPath("lenta_news")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "manual.txt"), []byte("моё\n"), 0o644))

	require.NoError(t, env.manager.Download(context.Background(), "lenta_news", driving.DownloadOptions{}))

	assert.Zero(t, env.fetcher.callCount())
	assert.FileExists(t, filepath.Join(dest, "manual.txt"))
}

func TestDownload_InsufficientSpace(t *testing.T) {
	env := newTestEnv(t, urlDataset("lenta_news"))
	WithSpaceFunc(func(string) (int64, int64, error) {
		return 1 << 30, 1024, nil
	})(env.manager)

	err := env.manager.Download(context.Background(), "lenta_news", driving.DownloadOptions{})
	assert.ErrorIs(t, err, domain.ErrInsufficientSpace)
	assert.Zero(t, env.fetcher.callCount())
}

func TestDownload_UnsupportedKind(t *testing.T) {
	ds := domain.Dataset{
		Name:   "hubby",
		Source: "org/hubby",
		Kind:   domain.KindHub,
		Format: domain.FormatHub,
	}
	env := newTestEnv(t, ds)

	err := env.manager.Download(context.Background(), "hubby", driving.DownloadOptions{})
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
	assert.Contains(t, err.Error(), "url")
}

func TestDownload_ReportsProgress(t *testing.T) {
	env := newTestEnv(t, urlDataset("lenta_news"))

	var mu sync.Mutex
	calls := 0
	WithProgress(func(string, int64, int64) {
		mu.Lock()
		calls++
		mu.Unlock()
	})(env.manager)

	require.NoError(t, env.manager.Download(context.Background(), "lenta_news", driving.DownloadOptions{}))
	assert.Positive(t, calls)
}

func TestDownload_FetchFailureRecorded(t *testing.T) {
	env := newTestEnv(t, urlDataset("lenta_news"))
	env.fetcher.err = errors.New("connection reset")
	ctx := context.Background()

	err := env.manager.Download(ctx, "lenta_news", driving.DownloadOptions{})
	require.Error(t, err)

	session, err := env.manifest.LatestDownload(ctx, "lenta_news")
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, session.State)
	assert.Contains(t, session.Error, "connection reset")

	assert.NoDirExists(t, env.layout.RawPath("lenta_news"))
}

func TestDownload_RunsPreprocessing(t *testing.T) {
	ds := urlDataset("lenta_news")
	ds.PreprocessSteps = []domain.StepRef{{Name: "upper"}}
	env := newTestEnv(t, ds)
	ctx := context.Background()

	require.NoError(t, env.manager.Download(ctx, "lenta_news", driving.DownloadOptions{}))

	processed := filepath.Join(env.layout.ProcessedPath("lenta_news"), "data.txt")
	content, err := os.ReadFile(processed)
	require.NoError(t, err)
	assert.Equal(t, "ПРИВЕТ МИР\n", string(content))

	// The run was recorded and the metadata snapshot written.
	run, err := env.manifest.LatestPreprocessRun(ctx, "lenta_news")
	require.NoError(t, err)
	assert.Equal(t, domain.StateComplete, run.State)
	assert.FileExists(t, filepath.Join(env.layout.ProcessedPath("lenta_news"), "preprocessing.json"))
}

func TestDownload_SkipPreprocessing(t *testing.T) {
	ds := urlDataset("lenta_news")
	ds.PreprocessSteps = []domain.StepRef{{Name: "upper"}}
	env := newTestEnv(t, ds)

	opts := driving.DownloadOptions{SkipPreprocessing: true}
	require.NoError(t, env.manager.Download(context.Background(), "lenta_news", opts))

	assert.NoDirExists(t, env.layout.ProcessedPath("lenta_news"))
}

func TestPreprocess_UnknownStep(t *testing.T) {
	ds := urlDataset("lenta_news")
	ds.PreprocessSteps = []domain.StepRef{{Name: "nope"}}
	env := newTestEnv(t, ds)
	ctx := context.Background()

	opts := driving.DownloadOptions{SkipPreprocessing: true}
	require.NoError(t, env.manager.Download(ctx, "lenta_news", opts))

	err := env.manager.Preprocess(ctx, "lenta_news")
	assert.ErrorIs(t, err, domain.ErrUnknownStep)
	assert.NoDirExists(t, env.layout.ProcessedPath("lenta_news"))
}

func TestPreprocess_NotDownloaded(t *testing.T) {
	ds := urlDataset("lenta_news")
	ds.PreprocessSteps = []domain.StepRef{{Name: "upper"}}
	env := newTestEnv(t, ds)

	err := env.manager.Preprocess(context.Background(), "lenta_news")
	assert.ErrorIs(t, err, domain.ErrNotDownloaded)
}

func TestValidate(t *testing.T) {
	ds := urlDataset("lenta_news")
	ds.ValidationChecks = []string{"russian_text", "text_format"}
	env := newTestEnv(t, ds)
	env.checks.checks["text_format"] = fakeCheck{
		name: "text_format",
		err:  fmt.Errorf("%w: file contains no text", domain.ErrValidationFailed),
	}
	ctx := context.Background()

	require.NoError(t, env.manager.Download(ctx, "lenta_news", driving.DownloadOptions{SkipValidation: true}))

	results, err := env.manager.Validate(ctx, "lenta_news")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
	assert.Contains(t, results[1].Detail, "no text")
}

func TestValidate_NotDownloaded(t *testing.T) {
	ds := urlDataset("lenta_news")
	ds.ValidationChecks = []string{"russian_text"}
	env := newTestEnv(t, ds)

	_, err := env.manager.Validate(context.Background(), "lenta_news")
	assert.ErrorIs(t, err, domain.ErrNotDownloaded)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, urlDataset("lenta_news"))
	ctx := context.Background()

	status, err := env.manager.Status(ctx, "lenta_news")
	require.NoError(t, err)
	assert.False(t, status.Downloaded())
	assert.Nil(t, status.LastDownload)

	require.NoError(t, env.manager.Download(ctx, "lenta_news", driving.DownloadOptions{}))

	status, err = env.manager.Status(ctx, "lenta_news")
	require.NoError(t, err)
	assert.True(t, status.Downloaded())
	assert.True(t, status.Raw.Exists)
	assert.Positive(t, status.Raw.SizeBytes)
	require.NotNil(t, status.LastDownload)
	assert.Equal(t, domain.StateComplete, status.LastDownload.State)
}

func TestUsage(t *testing.T) {
	env := newTestEnv(t, urlDataset("lenta_news"))
	WithSpaceFunc(func(string) (int64, int64, error) {
		return 1000, 400, nil
	})(env.manager)
	ctx := context.Background()

	require.NoError(t, env.manager.Download(ctx, "lenta_news", driving.DownloadOptions{}))

	usage, err := env.manager.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), usage.TotalBytes)
	assert.Equal(t, int64(600), usage.UsedBytes)
	assert.Positive(t, usage.RawBytes)
	assert.Equal(t, usage.RawBytes, usage.DatasetsBytes)
}

func TestClean(t *testing.T) {
	env := newTestEnv(t)

	tempFile := filepath.Join(env.layout.TempDir(), "leftover.part")
	require.NoError(t, os.MkdirAll(env.layout.TempDir(), 0o755))
	require.NoError(t, os.WriteFile(tempFile, make([]byte, 512), 0o644))

	cachedFile := filepath.Join(env.layout.CachedPath("sberquad"), "data.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(cachedFile), 0o755))
	require.NoError(t, os.WriteFile(cachedFile, make([]byte, 256), 0o644))

	reclaimed, err := env.manager.Clean(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(512), reclaimed)
	assert.NoFileExists(t, tempFile)
	assert.FileExists(t, cachedFile)

	reclaimed, err = env.manager.Clean(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int64(256), reclaimed)
	assert.NoFileExists(t, cachedFile)

	// Stages are recreated empty.
	assert.DirExists(t, env.layout.TempDir())
	assert.DirExists(t, env.layout.CachedDir())
}

func TestDownloadAll(t *testing.T) {
	env := newTestEnv(t, urlDataset("first"), urlDataset("second"), urlDataset("third"))

	result := env.manager.DownloadAll(context.Background(),
		[]string{"first", "second", "third", "missing"}, driving.DownloadOptions{})

	require.Len(t, result, 4)
	assert.Equal(t, 3, result.Succeeded())
	assert.NoError(t, result["first"])
	assert.NoError(t, result["second"])
	assert.NoError(t, result["third"])
	assert.ErrorIs(t, result["missing"], domain.ErrUnknownDataset)

	for _, name := range []string{"first", "second", "third"} {
		assert.FileExists(t, filepath.Join(env.layout.RawPath(name), "data.txt"))
	}
}

func TestDownloadAll_SuppressesProgress(t *testing.T) {
	env := newTestEnv(t, urlDataset("first"), urlDataset("second"))

	var mu sync.Mutex
	calls := 0
	WithProgress(func(string, int64, int64) {
		mu.Lock()
		calls++
		mu.Unlock()
	})(env.manager)

	result := env.manager.DownloadAll(context.Background(),
		[]string{"first", "second"}, driving.DownloadOptions{})

	// Concurrent workers share one terminal row, so batches stay quiet.
	assert.Equal(t, 2, result.Succeeded())
	assert.Zero(t, calls)
}
