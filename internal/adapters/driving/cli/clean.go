package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cleanCacheFlag bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove temporary download files",
	Long: `Empties the datasets/temp stage, which holds interrupted downloads
and extraction leftovers. With --cache the cached hub datasets are
removed as well and will be re-downloaded on next use.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanCacheFlag, "cache", false, "also clear cached hub datasets")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, _ []string) error {
	if datasetManager == nil {
		return errors.New("dataset service not configured")
	}

	reclaimed, err := datasetManager.Clean(context.Background(), cleanCacheFlag)
	if err != nil {
		return fmt.Errorf("clean failed: %w", err)
	}

	cmd.Printf("Reclaimed %s.\n", humanize.Bytes(uint64(reclaimed)))
	return nil
}
