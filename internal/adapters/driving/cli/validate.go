package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <dataset>...",
	Short: "Run quality checks on datasets",
	Long: `Runs each dataset's configured validation checks against its
processed files (or the raw download when preprocessing has not run).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if datasetManager == nil {
		return errors.New("dataset service not configured")
	}

	ctx := context.Background()
	failed := 0
	for _, name := range args {
		results, err := datasetManager.Validate(ctx, name)
		if err != nil {
			return fmt.Errorf("validating %s: %w", name, err)
		}

		cmd.Println(titleStyle.Render(name))
		for _, r := range results {
			if r.Passed {
				cmd.Printf("  %s %s\n", okStyle.Render("pass"), r.Check)
				continue
			}
			failed++
			cmd.Printf("  %s %s: %s\n", failStyle.Render("fail"), r.Check, r.Detail)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}
