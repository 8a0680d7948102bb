package domain

import (
	"fmt"
	"sort"
)

// SourceKind identifies where a dataset is fetched from.
type SourceKind string

const (
	// KindHub fetches from the Hugging Face Hub by dataset id.
	KindHub SourceKind = "hub"

	// KindURL fetches a single artifact via HTTP GET.
	KindURL SourceKind = "url"
)

// Format describes the shape of the fetched artifact.
type Format string

const (
	// FormatHub is a Hub dataset (a set of files listed by the Hub API).
	FormatHub Format = "hf"

	// FormatZip is a zip archive.
	FormatZip Format = "zip"

	// FormatTar is an uncompressed tar archive.
	FormatTar Format = "tar"

	// FormatTarGz is a gzip-compressed tar archive.
	FormatTarGz Format = "tar.gz"

	// FormatCSV is a plain CSV file.
	FormatCSV Format = "csv"

	// FormatJSON is a plain JSON file.
	FormatJSON Format = "json"
)

// IsArchive reports whether the format needs extraction after download.
func (f Format) IsArchive() bool {
	switch f {
	case FormatZip, FormatTar, FormatTarGz:
		return true
	default:
		return false
	}
}

// StepRef names a preprocessing step together with its parameters.
// Steps are applied in catalog order.
type StepRef struct {
	// Name is the registered step name (e.g. "truncate").
	Name string `toml:"name"`

	// Params contains step-specific settings (e.g. max_length).
	Params map[string]any `toml:"params,omitempty"`
}

func (r StepRef) String() string {
	if len(r.Params) == 0 {
		return r.Name
	}
	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := r.Name + "("
	for i, k := range keys {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s=%v", k, r.Params[k])
	}
	return s + ")"
}

// Dataset is one entry of the dataset catalog.
// Entries are read from a static table at start-up and never mutated.
type Dataset struct {
	// Name is the catalog key, used for directory names.
	Name string `toml:"name"`

	// Source is a Hub dataset id ("IlyaGusev/gazeta") or a direct URL.
	Source string `toml:"source"`

	// Kind selects the fetcher used for Source.
	Kind SourceKind `toml:"kind"`

	// Format of the fetched artifact.
	Format Format `toml:"format"`

	// SizeMB is the expected download size, used for disk-space checks
	// and size-based recommendations. Approximate.
	SizeMB float64 `toml:"size_mb"`

	// Description is a short human-readable summary.
	Description string `toml:"description"`

	// Language is the ISO 639-1 language code. Defaults to "ru".
	Language string `toml:"language,omitempty"`

	// TaskType groups datasets by NLP task ("qa", "text_generation", ...).
	TaskType string `toml:"task_type"`

	// PreprocessSteps are applied in order by the preprocessing pipeline.
	PreprocessSteps []StepRef `toml:"preprocess,omitempty"`

	// ValidationChecks name the checks run against processed output.
	ValidationChecks []string `toml:"validate,omitempty"`
}

// Validate checks the catalog entry is internally consistent.
func (d *Dataset) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: dataset name is empty", ErrInvalidInput)
	}
	if d.Source == "" {
		return fmt.Errorf("%w: dataset %q has no source", ErrInvalidInput, d.Name)
	}
	switch d.Kind {
	case KindHub, KindURL:
	default:
		return fmt.Errorf("%w: dataset %q has unknown kind %q", ErrInvalidInput, d.Name, d.Kind)
	}
	if d.Kind == KindHub && d.Format != FormatHub {
		return fmt.Errorf("%w: dataset %q: hub sources must use format %q", ErrInvalidInput, d.Name, FormatHub)
	}
	if d.SizeMB < 0 {
		return fmt.Errorf("%w: dataset %q has negative size", ErrInvalidInput, d.Name)
	}
	return nil
}

// SizeBytes returns the expected size in bytes.
func (d *Dataset) SizeBytes() int64 {
	return int64(d.SizeMB * 1024 * 1024)
}
