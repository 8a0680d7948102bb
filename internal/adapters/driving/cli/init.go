package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/scaffold"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create the project directory tree",
	Long: `Creates the fixed project tree (datasets, models, configs, logs,
results) with a README in each folder and a project.toml marker.
Defaults to the configured project root; safe to run repeatedly.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	layout := projectLayout
	if len(args) == 1 {
		layout = domain.NewLayout(args[0])
	}

	created, err := scaffold.Create(layout)
	if err != nil {
		return fmt.Errorf("creating project tree: %w", err)
	}

	if created == 0 {
		cmd.Printf("Project tree at %s already complete.\n", layout.Root)
		return nil
	}
	cmd.Printf("Project tree ready at %s (%d new directories).\n", layout.Root, created)
	return nil
}
