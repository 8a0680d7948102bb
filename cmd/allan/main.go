// Command allan downloads and manages Russian NLP training datasets.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	catalogtoml "github.com/allan-project/allan-cli/internal/adapters/driven/catalog/toml"
	configfile "github.com/allan-project/allan-cli/internal/adapters/driven/config/file"
	"github.com/allan-project/allan-cli/internal/adapters/driven/storage/sqlite"
	"github.com/allan-project/allan-cli/internal/adapters/driving/cli"
	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
	"github.com/allan-project/allan-cli/internal/core/services"
	"github.com/allan-project/allan-cli/internal/fetchers"
	"github.com/allan-project/allan-cli/internal/fetchers/hub"
	urlfetcher "github.com/allan-project/allan-cli/internal/fetchers/url"
	"github.com/allan-project/allan-cli/internal/monitor"
	"github.com/allan-project/allan-cli/internal/preprocessors"
	"github.com/allan-project/allan-cli/internal/validators"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	root := config.GetString("data.root")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home directory: %w", err)
		}
		root = filepath.Join(home, "allan")
	}
	layout := domain.NewLayout(root)

	overlay := filepath.Join(filepath.Dir(config.Path()), "catalog.toml")
	catalog, err := catalogtoml.New(catalogtoml.WithOverlay(overlay))
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	manifest, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening manifest store: %w", err)
	}
	defer manifest.Close()

	registry := fetchers.NewRegistry(
		urlfetcher.New(
			urlfetcher.WithMaxRetries(config.GetInt("download.max_retries")),
			urlfetcher.WithRequestRate(config.GetFloat("download.rate_limit")),
		),
		hub.New(),
	)

	steps := preprocessors.NewRegistry()
	preprocessors.RegisterDefaults(steps)

	checks := validators.NewRegistry()
	validators.RegisterDefaults(checks)

	manager := services.NewManager(
		layout, catalog, registry, checks, manifest,
		func(refs []domain.StepRef) (driven.StepPipeline, error) {
			return preprocessors.FromRefs(steps, refs)
		},
		services.WithSpaceFunc(monitor.Space),
		services.WithProgress(cli.RenderProgress),
		services.WithParallelism(config.GetInt("download.parallelism")),
	)

	cli.SetServices(manager, catalog, config, layout)
	cli.SetCatalogExporter(catalog)

	return cli.Execute(version)
}
