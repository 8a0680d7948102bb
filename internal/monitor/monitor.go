// Package monitor tracks disk usage of the project tree and reports
// threshold breaches while long downloads run.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/logger"
)

const (
	// DefaultInterval between samples.
	DefaultInterval = 30 * time.Second

	// DefaultWarningPercent is the disk usage warning threshold.
	DefaultWarningPercent = 80

	// DefaultCriticalPercent is the disk usage critical threshold.
	DefaultCriticalPercent = 90
)

// Space reports total and free bytes of the filesystem holding path.
func Space(path string) (total, free int64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := int64(st.Bsize)
	return int64(st.Blocks) * bsize, int64(st.Bavail) * bsize, nil
}

// DirSize walks a directory tree and sums regular file sizes.
// A missing directory counts as zero.
func DirSize(path string) (int64, error) {
	var total int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
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
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return total, nil
}

// Sample is one disk usage measurement.
type Sample struct {
	Time        time.Time `json:"time"`
	UsedPercent float64   `json:"used_percent"`
	FreeBytes   int64     `json:"free_bytes"`
	TempBytes   int64     `json:"temp_bytes"`
	Level       string    `json:"level"`
}

// Report is the JSON session summary written when monitoring stops.
type Report struct {
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Samples         []Sample  `json:"samples"`
	Warnings        int       `json:"warnings"`
	Criticals       int       `json:"criticals"`
	TempCleanups    int       `json:"temp_cleanups"`
	BytesReclaimed  int64     `json:"bytes_reclaimed"`
	WarningPercent  float64   `json:"warning_percent"`
	CriticalPercent float64   `json:"critical_percent"`
}

// Monitor samples disk usage on an interval. When usage crosses the
// critical threshold it clears the temp stage to reclaim space.
type Monitor struct {
	layout          domain.Layout
	interval        time.Duration
	warningPercent  float64
	criticalPercent float64
	cleanTemp       bool

	report Report
}

// Option configures the monitor.
type Option func(*Monitor)

// WithInterval sets the sampling interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithThresholds sets the warning and critical usage percentages.
func WithThresholds(warning, critical float64) Option {
	return func(m *Monitor) {
		if warning > 0 {
			m.warningPercent = warning
		}
		if critical > 0 {
			m.criticalPercent = critical
		}
	}
}

// WithTempCleanup enables clearing the temp stage on critical usage.
func WithTempCleanup(enabled bool) Option {
	return func(m *Monitor) { m.cleanTemp = enabled }
}

// New creates a monitor for the project layout.
func New(layout domain.Layout, opts ...Option) *Monitor {
	m := &Monitor{
		layout:          layout,
		interval:        DefaultInterval,
		warningPercent:  DefaultWarningPercent,
		criticalPercent: DefaultCriticalPercent,
		cleanTemp:       true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run samples until the context is cancelled, then writes the session
// report into the logs directory and returns its path.
func (m *Monitor) Run(ctx context.Context) (string, error) {
	m.report = Report{
		StartedAt:       time.Now().UTC(),
		WarningPercent:  m.warningPercent,
		CriticalPercent: m.criticalPercent,
	}

	// First sample immediately so short sessions still record data.
	m.sample()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.report.FinishedAt = time.Now().UTC()
			return m.writeReport()
		case <-ticker.C:
			m.sample()
		}
	}
}

// sample takes one measurement and reacts to threshold breaches.
func (m *Monitor) sample() {
	total, free, err := Space(m.layout.Root)
	if err != nil {
		logger.Error("disk sample failed: %v", err)
		return
	}

	tempBytes, err := DirSize(m.layout.TempDir())
	if err != nil {
		logger.Warn("measuring temp stage: %v", err)
	}

	usedPercent := 0.0
	if total > 0 {
		usedPercent = float64(total-free) / float64(total) * 100
	}

	s := Sample{
		Time:        time.Now().UTC(),
		UsedPercent: usedPercent,
		FreeBytes:   free,
		TempBytes:   tempBytes,
		Level:       "ok",
	}

	switch {
	case usedPercent >= m.criticalPercent:
		s.Level = "critical"
		m.report.Criticals++
		logger.Error("disk usage critical: %.1f%% used, %d bytes free", usedPercent, free)
		if m.cleanTemp && tempBytes > 0 {
			m.clearTemp(tempBytes)
		}
	case usedPercent >= m.warningPercent:
		s.Level = "warning"
		m.report.Warnings++
		logger.Warn("disk usage high: %.1f%% used", usedPercent)
	default:
		logger.Debug("disk usage %.1f%%, temp stage %d bytes", usedPercent, tempBytes)
	}

	m.report.Samples = append(m.report.Samples, s)
}

// clearTemp empties and recreates the temp stage.
func (m *Monitor) clearTemp(tempBytes int64) {
	if err := os.RemoveAll(m.layout.TempDir()); err != nil {
		logger.Error("clearing temp stage: %v", err)
		return
	}
	if err := os.MkdirAll(m.layout.TempDir(), 0o755); err != nil {
		logger.Error("recreating temp stage: %v", err)
		return
	}
	m.report.TempCleanups++
	m.report.BytesReclaimed += tempBytes
	logger.Info("cleared temp stage, reclaimed %d bytes", tempBytes)
}

// writeReport persists the session report as JSON under logs/.
func (m *Monitor) writeReport() (string, error) {
	if err := os.MkdirAll(m.layout.LogsDir(), 0o755); err != nil {
		return "", fmt.Errorf("creating logs directory: %w", err)
	}

	name := fmt.Sprintf("monitor_%s.json", m.report.StartedAt.Format("20060102_150405"))
	path := filepath.Join(m.layout.LogsDir(), name)

	data, err := json.MarshalIndent(m.report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
