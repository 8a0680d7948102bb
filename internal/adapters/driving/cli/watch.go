package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/allan-project/allan-cli/internal/monitor"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow changes in the dataset tree",
	Long: `Prints filesystem events from the dataset stage directories until
interrupted. Useful to follow external tools writing into the tree.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	w, err := monitor.NewWatcher(projectLayout)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s. Ctrl-C to stop.\n", projectLayout.DatasetsDir())
	return w.Run(ctx, func(ev monitor.Event) {
		cmd.Printf("%s %s\n", dimStyle.Render(ev.Op), ev.Path)
	})
}
