package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/allan-project/allan-cli/internal/core/domain"
)

var (
	listTaskFlag    string
	listMaxSizeFlag float64
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog datasets",
	Long: `Lists the datasets available in the catalog.

Filter by NLP task type with --task or by expected download size with
--max-size (in megabytes).`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listTaskFlag, "task", "", "only datasets for this task type")
	listCmd.Flags().Float64Var(&listMaxSizeFlag, "max-size", 0, "only datasets up to this size in MB")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if datasetCatalog == nil {
		return errors.New("catalog not configured")
	}

	var datasets []domain.Dataset
	switch {
	case listTaskFlag != "":
		datasets = datasetCatalog.ListByTask(listTaskFlag)
	case listMaxSizeFlag > 0:
		datasets = datasetCatalog.FilterByMaxSize(listMaxSizeFlag)
	default:
		datasets = datasetCatalog.List()
	}

	if len(datasets) == 0 {
		cmd.Println("No datasets match.")
		if listTaskFlag != "" {
			cmd.Println(dimStyle.Render("known task types: " + strings.Join(datasetCatalog.TaskTypes(), ", ")))
		}
		return nil
	}

	// Group by task type unless a filter already narrowed the list.
	if listTaskFlag == "" && listMaxSizeFlag == 0 {
		printGrouped(cmd, datasets)
		return nil
	}

	cmd.Println(titleStyle.Render(fmt.Sprintf("%-28s %-22s %-6s %10s", "NAME", "TASK", "KIND", "SIZE")))
	var total int64
	for _, ds := range datasets {
		cmd.Printf("%-28s %-22s %-6s %10s\n", ds.Name, ds.TaskType, ds.Kind, humanize.Bytes(uint64(ds.SizeBytes())))
		if verboseFlag {
			cmd.Println(dimStyle.Render("  " + truncate(ds.Description, termWidth()-2)))
		}
		total += ds.SizeBytes()
	}
	cmd.Println()
	cmd.Printf("%d datasets, %s total\n", len(datasets), humanize.Bytes(uint64(total)))
	return nil
}

// printGrouped renders the catalog grouped by task type with totals.
func printGrouped(cmd *cobra.Command, datasets []domain.Dataset) {
	byTask := make(map[string][]domain.Dataset)
	for _, ds := range datasets {
		byTask[ds.TaskType] = append(byTask[ds.TaskType], ds)
	}

	tasks := make([]string, 0, len(byTask))
	for task := range byTask {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)

	var total int64
	for _, task := range tasks {
		cmd.Println(titleStyle.Render(task))
		for _, ds := range byTask[task] {
			cmd.Printf("  %-28s %-6s %10s\n", ds.Name, ds.Kind, humanize.Bytes(uint64(ds.SizeBytes())))
			if verboseFlag {
				cmd.Println(dimStyle.Render("    " + truncate(ds.Description, termWidth()-4)))
			}
			total += ds.SizeBytes()
		}
		cmd.Println()
	}
	cmd.Printf("%d datasets, %s total\n", len(datasets), humanize.Bytes(uint64(total)))
}

// truncate shortens a line to fit the terminal, slicing on runes so
// multibyte descriptions stay valid UTF-8.
func truncate(s string, width int) string {
	if width <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
