package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/lakewatch/lakewatch/pkg/observe"
)

var clustersFlags struct {
	minUptime     time.Duration
	idleThreshold time.Duration
	limit         int
}

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Inspect compute clusters",
}

var clustersLongRunningCmd = &cobra.Command{
	Use:   "long-running",
	Short: "List active clusters whose uptime met the threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.clusters.ListLongRunningClusters(cmd.Context(), observe.LongRunningClustersParams{
			MinUptime: clustersFlags.minUptime,
			Limit:     clustersFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var clustersIdleCmd = &cobra.Command{
	Use:   "idle",
	Short: "List running clusters with no recent activity",
	Long: `List running clusters with no activity for at least the threshold,
most idle first. These are candidates for termination.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.clusters.ListIdleClusters(cmd.Context(), observe.IdleClustersParams{
			IdleThreshold: clustersFlags.idleThreshold,
			Limit:         clustersFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

func init() {
	rootCmd.AddCommand(clustersCmd)
	clustersCmd.AddCommand(clustersLongRunningCmd, clustersIdleCmd)

	clustersLongRunningCmd.Flags().DurationVar(&clustersFlags.minUptime, "min-uptime", 0, "minimum uptime (default 8h)")
	clustersIdleCmd.Flags().DurationVar(&clustersFlags.idleThreshold, "idle-threshold", 0, "minimum idle time (default 2h)")
	clustersCmd.PersistentFlags().IntVar(&clustersFlags.limit, "limit", 0, "maximum records (default 50)")
}
