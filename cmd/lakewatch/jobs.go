package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/lakewatch/lakewatch/pkg/observe"
)

var jobsFlags struct {
	minDuration time.Duration
	lookback    time.Duration
	limit       int
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect job runs",
}

var jobsLongRunningCmd = &cobra.Command{
	Use:   "long-running",
	Short: "List job runs whose duration met the threshold",
	Long: `List job runs whose duration within the lookback window met the
threshold, longest first. Runs still in flight are included with their
duration so far.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.jobs.ListLongRunningJobs(cmd.Context(), observe.LongRunningJobsParams{
			MinDuration: jobsFlags.minDuration,
			Lookback:    jobsFlags.lookback,
			Limit:       jobsFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var jobsFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List job runs that ended in a failed result state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.jobs.ListFailedJobs(cmd.Context(), observe.FailedJobsParams{
			Lookback: jobsFlags.lookback,
			Limit:    jobsFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsLongRunningCmd, jobsFailedCmd)

	jobsLongRunningCmd.Flags().DurationVar(&jobsFlags.minDuration, "min-duration", 0, "minimum run duration (default 4h)")
	jobsCmd.PersistentFlags().DurationVar(&jobsFlags.lookback, "lookback", 0, "how far back to look (default 24h)")
	jobsCmd.PersistentFlags().IntVar(&jobsFlags.limit, "limit", 0, "maximum records (default 50)")
}
