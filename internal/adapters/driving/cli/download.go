package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/core/ports/driving"
)

var (
	downloadAllFlag      bool
	downloadTaskFlag     string
	downloadMaxSizeFlag  float64
	downloadForceFlag    bool
	downloadSkipPrepFlag bool
	downloadSkipValFlag  bool
)

var downloadCmd = &cobra.Command{
	Use:   "download [dataset...]",
	Short: "Download datasets from the catalog",
	Long: `Downloads one or more datasets into the project tree.

Direct downloads land in datasets/raw, hub datasets in datasets/cached.
Unless skipped, each dataset is preprocessed and validated after the
download. Already-downloaded datasets are skipped unless --force.`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().BoolVar(&downloadAllFlag, "all", false, "download every catalog dataset")
	downloadCmd.Flags().StringVar(&downloadTaskFlag, "task", "", "download all datasets for this task type")
	downloadCmd.Flags().Float64Var(&downloadMaxSizeFlag, "max-size", 0, "download all datasets up to this size in MB")
	downloadCmd.Flags().BoolVarP(&downloadForceFlag, "force", "f", false, "re-download even if present")
	downloadCmd.Flags().BoolVar(&downloadSkipPrepFlag, "skip-preprocessing", false, "do not preprocess after download")
	downloadCmd.Flags().BoolVar(&downloadSkipValFlag, "skip-validation", false, "do not validate after download")
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	if datasetManager == nil {
		return errors.New("dataset service not configured")
	}

	names, err := selectDatasets(args)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return errors.New("no datasets given (name one, or use --all, --task or --max-size)")
	}

	opts := driving.DownloadOptions{
		Force:             downloadForceFlag,
		SkipPreprocessing: downloadSkipPrepFlag,
		SkipValidation:    downloadSkipValFlag,
	}

	ctx := context.Background()

	if len(names) == 1 {
		cmd.Printf("Downloading %s...\n", names[0])
		if err := datasetManager.Download(ctx, names[0], opts); err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		cmd.Println(okStyle.Render(fmt.Sprintf("%s ready.", names[0])))
		return nil
	}

	cmd.Printf("Downloading %d datasets...\n", len(names))
	result := datasetManager.DownloadAll(ctx, names, opts)
	printBatchResult(cmd, result)

	if result.Succeeded() < len(result) {
		return fmt.Errorf("%d of %d datasets failed", len(result)-result.Succeeded(), len(result))
	}
	return nil
}

// selectDatasets resolves the download set from arguments or the
// catalog selection flags.
func selectDatasets(args []string) ([]string, error) {
	if !downloadAllFlag && downloadTaskFlag == "" && downloadMaxSizeFlag == 0 {
		return args, nil
	}
	if datasetCatalog == nil {
		return nil, errors.New("catalog not configured")
	}

	var datasets []domain.Dataset
	switch {
	case downloadTaskFlag != "":
		datasets = datasetCatalog.ListByTask(downloadTaskFlag)
	case downloadMaxSizeFlag > 0:
		datasets = datasetCatalog.FilterByMaxSize(downloadMaxSizeFlag)
	default:
		datasets = datasetCatalog.List()
	}

	names := make([]string, 0, len(datasets))
	for _, ds := range datasets {
		names = append(names, ds.Name)
	}
	return names, nil
}

// printBatchResult lists per-dataset outcomes, failures last.
func printBatchResult(cmd *cobra.Command, result driving.BatchResult) {
	names := make([]string, 0, len(result))
	for name := range result {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if result[name] == nil {
			cmd.Printf("  %s %s\n", okStyle.Render("ok"), name)
		}
	}
	for _, name := range names {
		if err := result[name]; err != nil {
			cmd.Printf("  %s %s: %v\n", failStyle.Render("failed"), name, err)
		}
	}
	cmd.Printf("\n%d of %d datasets downloaded.\n", result.Succeeded(), len(result))
}

// RenderProgress prints an in-place progress line for a download.
// Wired into the manager by main; quiet when stdout is not a terminal.
func RenderProgress(dataset string, fetched, total int64) {
	if !stdoutIsTerminal() {
		return
	}
	if total > 0 {
		fmt.Printf("\r%s: %s / %s (%.0f%%)   ", dataset,
			humanize.Bytes(uint64(fetched)), humanize.Bytes(uint64(total)),
			float64(fetched)/float64(total)*100)
		return
	}
	fmt.Printf("\r%s: %s   ", dataset, humanize.Bytes(uint64(fetched)))
}
