package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ict-ledger/interfaces"
)

var (
	recomputePeriod string
	recomputeStart  string
	recomputeEnd    string
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute one aggregate window from positions, signals and equity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			periodType, err := interfaces.ParsePeriodType(recomputePeriod)
			if err != nil {
				return err
			}
			start, end, err := parseWindow(a, recomputeStart, recomputeEnd)
			if err != nil {
				return err
			}
			report, err := a.performance.Recompute(cmd.Context(), periodType, start, end)
			if err != nil {
				return err
			}
			return printJSON(report)
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a stored aggregate against a fresh computation, rebuilding on mismatch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			periodType, err := interfaces.ParsePeriodType(recomputePeriod)
			if err != nil {
				return err
			}
			start, end, err := parseWindow(a, recomputeStart, recomputeEnd)
			if err != nil {
				return err
			}
			report, err := a.performance.Verify(cmd.Context(), periodType, start, end)
			if err != nil {
				return err
			}
			return printJSON(report)
		})
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Drop every aggregate and recompute from the underlying rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			n, err := a.performance.Rebuild(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("rebuilt %d aggregate windows\n", n)
			return nil
		})
	},
}

// parseWindow reads --start and --end as YYYY-MM-DD in the trading timezone.
// An empty start means now.
func parseWindow(a *app, rawStart, rawEnd string) (time.Time, time.Time, error) {
	start := time.Now()
	var end time.Time
	if rawStart != "" {
		t, err := time.ParseInLocation("2006-01-02", rawStart, a.location)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--start: %w", err)
		}
		start = t
	}
	if rawEnd != "" {
		t, err := time.ParseInLocation("2006-01-02", rawEnd, a.location)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--end: %w", err)
		}
		end = t
	}
	return start, end, nil
}

func init() {
	rootCmd.AddCommand(recomputeCmd, verifyCmd, rebuildCmd)

	for _, cmd := range []*cobra.Command{recomputeCmd, verifyCmd} {
		cmd.Flags().StringVar(&recomputePeriod, "period", string(interfaces.PeriodAllTime), "daily, weekly, monthly, yearly, all_time or custom")
		cmd.Flags().StringVar(&recomputeStart, "start", "", "window start date (YYYY-MM-DD); defaults to the window containing now")
		cmd.Flags().StringVar(&recomputeEnd, "end", "", "window end date, required for custom")
	}
}
