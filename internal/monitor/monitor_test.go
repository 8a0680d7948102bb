package monitor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allan-project/allan-cli/internal/core/domain"
)

func TestSpace(t *testing.T) {
	total, free, err := Space(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, total)
	assert.Positive(t, free)
	assert.LessOrEqual(t, free, total)
}

func TestSpace_MissingPath(t *testing.T) {
	_, _, err := Space(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), make([]byte, 100), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), make([]byte, 50), 0o644))

	size, err := DirSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(150), size)
}

func TestDirSize_MissingDir(t *testing.T) {
	size, err := DirSize(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestMonitor_WritesReport(t *testing.T) {
	l := domain.NewLayout(t.TempDir())
	require.NoError(t, os.MkdirAll(l.TempDir(), 0o755))

	m := New(l, WithInterval(10*time.Millisecond), WithThresholds(99.9, 99.99))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	path, err := m.Run(ctx)
	require.NoError(t, err)
	require.FileExists(t, path)
	assert.Equal(t, l.LogsDir(), filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.NotEmpty(t, report.Samples)
	assert.False(t, report.StartedAt.IsZero())
	assert.False(t, report.FinishedAt.IsZero())
	assert.InDelta(t, 99.9, report.WarningPercent, 0.001)
}

func TestMonitor_CriticalClearsTemp(t *testing.T) {
	l := domain.NewLayout(t.TempDir())
	require.NoError(t, os.MkdirAll(l.TempDir(), 0o755))
	staged := filepath.Join(l.TempDir(), "partial_download")
	require.NoError(t, os.MkdirAll(staged, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staged, "part"), make([]byte, 1024), 0o644))

	// Thresholds of zero effective percent force the critical branch.
	m := New(l, WithInterval(time.Hour), WithThresholds(0.001, 0.002))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Run(ctx)
	require.NoError(t, err)

	assert.Positive(t, m.report.Criticals)
	assert.Equal(t, 1, m.report.TempCleanups)
	assert.Equal(t, int64(1024), m.report.BytesReclaimed)

	// Temp stage was recreated empty.
	entries, err := os.ReadDir(l.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMonitor_CleanupDisabled(t *testing.T) {
	l := domain.NewLayout(t.TempDir())
	require.NoError(t, os.MkdirAll(l.TempDir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(l.TempDir(), "part"), make([]byte, 64), 0o644))

	m := New(l, WithInterval(time.Hour), WithThresholds(0.001, 0.002), WithTempCleanup(false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Run(ctx)
	require.NoError(t, err)

	assert.Zero(t, m.report.TempCleanups)
	assert.FileExists(t, filepath.Join(l.TempDir(), "part"))
}

func TestOptions_IgnoreInvalid(t *testing.T) {
	l := domain.NewLayout(t.TempDir())
	m := New(l, WithInterval(-time.Second), WithThresholds(0, -5))

	assert.Equal(t, DefaultInterval, m.interval)
	assert.Equal(t, float64(DefaultWarningPercent), m.warningPercent)
	assert.Equal(t, float64(DefaultCriticalPercent), m.criticalPercent)
}
