package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show disk usage of the project tree",
	RunE:  runUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, _ []string) error {
	if datasetManager == nil {
		return errors.New("dataset service not configured")
	}

	usage, err := datasetManager.Usage(context.Background())
	if err != nil {
		return fmt.Errorf("measuring usage: %w", err)
	}

	cmd.Println(titleStyle.Render("Disk usage"))
	if usage.TotalBytes > 0 {
		line := fmt.Sprintf("  volume     %s of %s used (%.1f%%), %s free",
			humanize.Bytes(uint64(usage.UsedBytes)), humanize.Bytes(uint64(usage.TotalBytes)),
			usage.UsedPercent(), humanize.Bytes(uint64(usage.FreeBytes)))
		if usage.UsedPercent() >= 90 {
			line = failStyle.Render(line)
		} else if usage.UsedPercent() >= 80 {
			line = warnStyle.Render(line)
		}
		cmd.Println(line)
	}
	cmd.Printf("  datasets   %s\n", humanize.Bytes(uint64(usage.DatasetsBytes)))
	cmd.Printf("    raw        %s\n", humanize.Bytes(uint64(usage.RawBytes)))
	cmd.Printf("    processed  %s\n", humanize.Bytes(uint64(usage.ProcessedBytes)))
	cmd.Printf("    cached     %s\n", humanize.Bytes(uint64(usage.CachedBytes)))
	cmd.Printf("    temp       %s\n", humanize.Bytes(uint64(usage.TempBytes)))

	if usage.TempBytes > 0 {
		cmd.Println(dimStyle.Render("run 'allan clean' to reclaim the temp stage"))
	}
	return nil
}
