package domain

import "time"

// StageStatus describes one stage directory of a dataset.
type StageStatus struct {
	// Exists reports whether the stage directory is present.
	Exists bool

	// SizeBytes is the total size of files under the stage directory.
	SizeBytes int64

	// LastModified is the directory's modification time, zero if absent.
	LastModified time.Time
}

// DatasetStatus reports the on-disk state of one dataset.
// Values are derived from the filesystem at call time.
type DatasetStatus struct {
	// Name is the catalog name.
	Name string

	// Raw, Processed and Cached describe the three persistent stages.
	Raw       StageStatus
	Processed StageStatus
	Cached    StageStatus

	// LastDownload is the most recent recorded download session, nil if
	// the dataset was never downloaded through this tool.
	LastDownload *DownloadSession
}

// Downloaded reports whether any persistent stage holds data.
func (s *DatasetStatus) Downloaded() bool {
	return s.Raw.Exists || s.Cached.Exists
}

// DiskUsage reports volume and per-stage space consumption for the project root.
type DiskUsage struct {
	// TotalBytes, UsedBytes and FreeBytes describe the volume holding the root.
	TotalBytes int64
	UsedBytes  int64
	FreeBytes  int64

	// DatasetsBytes is the size of the whole datasets tree.
	DatasetsBytes int64

	// RawBytes, ProcessedBytes, CachedBytes and TempBytes are per-stage sizes.
	RawBytes       int64
	ProcessedBytes int64
	CachedBytes    int64
	TempBytes      int64
}

// UsedPercent returns volume usage as a percentage, 0 for an empty volume.
func (u *DiskUsage) UsedPercent() float64 {
	if u.TotalBytes == 0 {
		return 0
	}
	return float64(u.UsedBytes) / float64(u.TotalBytes) * 100
}
