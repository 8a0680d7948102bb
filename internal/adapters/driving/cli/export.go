package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the merged catalog as TOML",
	Long: `Writes the effective dataset catalog, built-in entries merged with
any user overrides, to the given file or to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if catalogExporter == nil {
		return errors.New("catalog not configured")
	}

	data, err := catalogExporter.Export()
	if err != nil {
		return fmt.Errorf("exporting catalog: %w", err)
	}

	if len(args) == 0 {
		cmd.Print(string(data))
		return nil
	}

	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", args[0], err)
	}
	cmd.Printf("Catalog written to %s.\n", args[0])
	return nil
}
