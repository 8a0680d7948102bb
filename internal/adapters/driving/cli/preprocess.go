package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess <dataset>...",
	Short: "Run preprocessing steps on downloaded datasets",
	Long: `Applies each dataset's configured preprocessing steps to its
downloaded files and writes the result into datasets/processed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPreprocess,
}

func init() {
	rootCmd.AddCommand(preprocessCmd)
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	if datasetManager == nil {
		return errors.New("dataset service not configured")
	}

	ctx := context.Background()
	for _, name := range args {
		cmd.Printf("Preprocessing %s...\n", name)
		if err := datasetManager.Preprocess(ctx, name); err != nil {
			return fmt.Errorf("preprocessing %s: %w", name, err)
		}
		cmd.Println(okStyle.Render(fmt.Sprintf("%s preprocessed.", name)))
	}
	return nil
}
