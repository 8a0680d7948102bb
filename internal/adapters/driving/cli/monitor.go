package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allan-project/allan-cli/internal/monitor"
)

var (
	monitorIntervalFlag time.Duration
	monitorForFlag      time.Duration
	monitorWarningFlag  float64
	monitorCriticalFlag float64
	monitorNoCleanFlag  bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch disk usage while downloads run",
	Long: `Samples disk usage of the project volume until interrupted, warning
when usage crosses the configured thresholds. On critical usage the
temp stage is cleared to reclaim space (disable with --no-clean).
A JSON session report is written into logs/ on exit.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorIntervalFlag, "interval", monitor.DefaultInterval, "sampling interval")
	monitorCmd.Flags().DurationVar(&monitorForFlag, "for", 0, "stop after this duration (default: until interrupted)")
	monitorCmd.Flags().Float64Var(&monitorWarningFlag, "warning", 0, "warning threshold in percent")
	monitorCmd.Flags().Float64Var(&monitorCriticalFlag, "critical", 0, "critical threshold in percent")
	monitorCmd.Flags().BoolVar(&monitorNoCleanFlag, "no-clean", false, "never clear the temp stage")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	warning, critical := monitorThresholds()

	m := monitor.New(projectLayout,
		monitor.WithInterval(monitorIntervalFlag),
		monitor.WithThresholds(warning, critical),
		monitor.WithTempCleanup(!monitorNoCleanFlag),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if monitorForFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, monitorForFlag)
		defer cancel()
		cmd.Printf("Monitoring %s every %s for %s (warn %.0f%%, critical %.0f%%).\n",
			projectLayout.Root, monitorIntervalFlag, monitorForFlag, warning, critical)
	} else {
		cmd.Printf("Monitoring %s every %s (warn %.0f%%, critical %.0f%%). Ctrl-C to stop.\n",
			projectLayout.Root, monitorIntervalFlag, warning, critical)
	}

	report, err := m.Run(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("\nSession report: %s\n", report)
	return nil
}

// monitorThresholds resolves thresholds from flags, then config, then
// defaults.
func monitorThresholds() (warning, critical float64) {
	warning = monitorWarningFlag
	critical = monitorCriticalFlag

	if configStore != nil {
		if warning == 0 {
			warning = configStore.GetFloat("monitor.warning_percent")
		}
		if critical == 0 {
			critical = configStore.GetFloat("monitor.critical_percent")
		}
	}
	if warning == 0 {
		warning = monitor.DefaultWarningPercent
	}
	if critical == 0 {
		critical = monitor.DefaultCriticalPercent
	}
	return warning, critical
}
