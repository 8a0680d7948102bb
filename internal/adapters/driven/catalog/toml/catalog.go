// Package toml provides the TOML-backed dataset catalog.
//
// The built-in catalog ships embedded in the binary. Users can add or
// override entries with their own catalog file, which is merged on top
// by dataset name.
package toml

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
	"github.com/allan-project/allan-cli/internal/logger"
)

// Ensure Catalog implements the interface.
var _ driven.Catalog = (*Catalog)(nil)

//go:embed builtin.toml
var builtinCatalog []byte

// catalogFile is the on-disk catalog shape.
type catalogFile struct {
	Datasets []domain.Dataset `toml:"dataset"`
}

// Catalog holds the merged dataset table. It is immutable after New.
type Catalog struct {
	byName map[string]domain.Dataset
	order  []string
}

// Option configures catalog loading.
type Option func(*loadConfig)

type loadConfig struct {
	overlayPath string
}

// WithOverlay merges a user catalog file on top of the built-in table.
// A missing file is not an error; a malformed file is.
func WithOverlay(path string) Option {
	return func(c *loadConfig) { c.overlayPath = path }
}

// New loads the built-in catalog, applying any configured overlay.
func New(opts ...Option) (*Catalog, error) {
	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Catalog{byName: make(map[string]domain.Dataset)}

	if err := c.merge(builtinCatalog, "builtin catalog"); err != nil {
		return nil, err
	}

	if cfg.overlayPath != "" {
		data, err := os.ReadFile(cfg.overlayPath)
		switch {
		case os.IsNotExist(err):
			logger.Debug("no user catalog at %s", cfg.overlayPath)
		case err != nil:
			return nil, fmt.Errorf("reading user catalog: %w", err)
		default:
			if err := c.merge(data, cfg.overlayPath); err != nil {
				return nil, err
			}
			logger.Info("merged user catalog from %s", cfg.overlayPath)
		}
	}

	sort.Strings(c.order)
	return c, nil
}

// merge parses TOML catalog data and overlays it onto the table.
func (c *Catalog) merge(data []byte, origin string) error {
	var file catalogFile
	if err := gotoml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", origin, err)
	}

	for i := range file.Datasets {
		ds := file.Datasets[i]
		if ds.Language == "" {
			ds.Language = "ru"
		}
		if err := ds.Validate(); err != nil {
			return fmt.Errorf("%s: %w", origin, err)
		}
		if _, exists := c.byName[ds.Name]; !exists {
			c.order = append(c.order, ds.Name)
		}
		c.byName[ds.Name] = ds
	}
	return nil
}

// Get returns the dataset with the given name.
func (c *Catalog) Get(name string) (*domain.Dataset, error) {
	ds, ok := c.byName[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDataset, name)
	}
	return &ds, nil
}

// List returns all datasets in name order.
func (c *Catalog) List() []domain.Dataset {
	out := make([]domain.Dataset, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// ListByTask returns datasets matching the given task type, in name order.
func (c *Catalog) ListByTask(taskType string) []domain.Dataset {
	var out []domain.Dataset
	for _, name := range c.order {
		if c.byName[name].TaskType == taskType {
			out = append(out, c.byName[name])
		}
	}
	return out
}

// FilterByMaxSize returns datasets no larger than maxMB, in name order.
func (c *Catalog) FilterByMaxSize(maxMB float64) []domain.Dataset {
	var out []domain.Dataset
	for _, name := range c.order {
		if c.byName[name].SizeMB <= maxMB {
			out = append(out, c.byName[name])
		}
	}
	return out
}

// TaskTypes returns the distinct task types present in the catalog.
func (c *Catalog) TaskTypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, ds := range c.byName {
		if !seen[ds.TaskType] {
			seen[ds.TaskType] = true
			out = append(out, ds.TaskType)
		}
	}
	sort.Strings(out)
	return out
}

// Export renders the merged catalog back to TOML.
func (c *Catalog) Export() ([]byte, error) {
	file := catalogFile{Datasets: c.List()}
	data, err := gotoml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encoding catalog: %w", err)
	}
	return data, nil
}
