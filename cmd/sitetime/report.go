package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/sitetime/internal/api"
	"github.com/goodtune/sitetime/internal/clock"
	"github.com/goodtune/sitetime/internal/config"
	"github.com/goodtune/sitetime/internal/report"
	"github.com/goodtune/sitetime/internal/usage"
	"github.com/spf13/cobra"
)

var (
	reportPeriod   string
	reportDay      int
	reportWatch    bool
	reportInterval time.Duration
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show time spent per domain",
	Long: `Show time spent per domain for today, yesterday or the last seven days,
sorted by time spent. The currently focused domain is highlighted.

Examples:
  sitetime report
  sitetime report --period week
  sitetime report --period week --day 2
  sitetime report --watch`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportPeriod, "period", "p", string(usage.PeriodToday), "Period to show: today, yesterday or week")
	reportCmd.Flags().IntVarP(&reportDay, "day", "d", -1, "With --period week, show a single day (0 = today, 6 = six days ago)")
	reportCmd.Flags().BoolVarP(&reportWatch, "watch", "w", false, "Keep refreshing until interrupted")
	reportCmd.Flags().DurationVar(&reportInterval, "interval", report.DefaultPollInterval, "Refresh interval for --watch")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	period, err := usage.ParsePeriod(reportPeriod)
	if err != nil {
		return err
	}
	if reportDay >= 0 && period != usage.PeriodWeek {
		return fmt.Errorf("--day requires --period week")
	}

	client := api.NewClient(cfg.Client.Addr, parseDuration(cfg.Client.Timeout, 5*time.Second))
	viewer := report.NewViewer(client, clock.RealClock{}, cmd.OutOrStdout())
	opts := report.Options{Period: period, Day: reportDay}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if reportWatch {
		return viewer.Watch(ctx, opts, reportInterval, report.DefaultTickInterval)
	}
	return viewer.Show(ctx, opts)
}
