// Package cli implements the allan command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driven"
	"github.com/allan-project/allan-cli/internal/core/ports/driving"
	"github.com/allan-project/allan-cli/internal/logger"
)

// Services used by the commands. Set by main during wiring; tests swap
// them for fakes.
var (
	datasetManager driving.DatasetManager
	datasetCatalog driven.Catalog
	configStore    driven.ConfigStore
	projectLayout  domain.Layout

	// catalogExporter renders the merged catalog back to TOML.
	catalogExporter interface{ Export() ([]byte, error) }
)

var (
	version string

	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "allan",
	Short: "Dataset downloader and manager for Russian NLP training",
	Long: `allan downloads, caches and preprocesses the Russian NLP datasets
used to train the Allan models. Datasets come from a built-in catalog
and are organised under a fixed project tree:

  datasets/raw        unmodified downloads
  datasets/processed  preprocessed output
  datasets/cached     hub datasets saved for reuse
  datasets/temp       in-flight downloads`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose output")
}

// SetServices wires the services the commands depend on.
func SetServices(
	manager driving.DatasetManager,
	catalog driven.Catalog,
	config driven.ConfigStore,
	layout domain.Layout,
) {
	datasetManager = manager
	datasetCatalog = catalog
	configStore = config
	projectLayout = layout
}

// SetCatalogExporter wires the catalog export implementation.
func SetCatalogExporter(e interface{ Export() ([]byte, error) }) {
	catalogExporter = e
}

// Execute runs the root command.
func Execute(v string) error {
	version = v
	return rootCmd.Execute()
}
