package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/allan-project/allan-cli/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status [dataset]",
	Short: "Show dataset download state",
	Long: `Shows which stages of a dataset exist on disk and when it was last
downloaded. Without arguments, summarises every catalog dataset.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if datasetManager == nil {
		return errors.New("dataset service not configured")
	}

	ctx := context.Background()

	if len(args) == 1 {
		status, err := datasetManager.Status(ctx, args[0])
		if err != nil {
			return err
		}
		printStatus(cmd, status)
		return nil
	}

	if datasetCatalog == nil {
		return errors.New("catalog not configured")
	}

	cmd.Println(titleStyle.Render(fmt.Sprintf("%-28s %-12s %-12s %-12s", "NAME", "RAW", "PROCESSED", "CACHED")))
	downloaded := 0
	for _, ds := range datasetCatalog.List() {
		status, err := datasetManager.Status(ctx, ds.Name)
		if err != nil {
			return err
		}
		if status.Downloaded() {
			downloaded++
		}
		cmd.Printf("%-28s %-12s %-12s %-12s\n", status.Name,
			stageCell(status.Raw), stageCell(status.Processed), stageCell(status.Cached))
	}
	cmd.Printf("\n%d datasets downloaded.\n", downloaded)
	return nil
}

// stageCell renders one stage column.
func stageCell(s domain.StageStatus) string {
	if !s.Exists {
		return "-"
	}
	return humanize.Bytes(uint64(s.SizeBytes))
}

// printStatus renders the detailed view for one dataset.
func printStatus(cmd *cobra.Command, status *domain.DatasetStatus) {
	cmd.Println(titleStyle.Render(status.Name))

	printStage(cmd, "raw", status.Raw)
	printStage(cmd, "processed", status.Processed)
	printStage(cmd, "cached", status.Cached)

	if status.LastDownload == nil {
		cmd.Println(dimStyle.Render("never downloaded"))
		return
	}

	s := status.LastDownload
	switch s.State {
	case domain.StateComplete:
		cmd.Printf("last download: %s (%s, %d files, %s)\n",
			okStyle.Render(string(s.State)),
			humanize.Time(s.FinishedAt), s.Files, humanize.Bytes(uint64(s.Bytes)))
		if s.Checksum != "" {
			cmd.Println(dimStyle.Render("sha256: " + s.Checksum))
		}
	default:
		cmd.Printf("last download: %s (%s): %s\n",
			failStyle.Render(string(s.State)), humanize.Time(s.FinishedAt), s.Error)
	}
}

func printStage(cmd *cobra.Command, name string, s domain.StageStatus) {
	if !s.Exists {
		cmd.Printf("  %-10s -\n", name)
		return
	}
	cmd.Printf("  %-10s %s, modified %s\n", name,
		humanize.Bytes(uint64(s.SizeBytes)), humanize.Time(s.LastModified))
}
