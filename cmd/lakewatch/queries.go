package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/lakewatch/lakewatch/pkg/observe"
)

var queriesFlags struct {
	lookback time.Duration
	limit    int
	user     string
}

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Inspect query history",
}

var queriesSlowestCmd = &cobra.Command{
	Use:   "slowest",
	Short: "List the slowest queries in the window",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.queries.TopSlowestQueries(cmd.Context(), observe.SlowestQueriesParams{
			Lookback: queriesFlags.lookback,
			Limit:    queriesFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var queriesUserSummaryCmd = &cobra.Command{
	Use:   "user-summary",
	Short: "Summarize one user's query activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.queries.GetUserQuerySummary(cmd.Context(), observe.UserQuerySummaryParams{
			UserName: queriesFlags.user,
			Lookback: queriesFlags.lookback,
		})
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

func init() {
	rootCmd.AddCommand(queriesCmd)
	queriesCmd.AddCommand(queriesSlowestCmd, queriesUserSummaryCmd)

	queriesCmd.PersistentFlags().DurationVar(&queriesFlags.lookback, "lookback", 0, "how far back to look (default 24h)")
	queriesSlowestCmd.Flags().IntVar(&queriesFlags.limit, "limit", 0, "maximum records (default 20)")
	queriesUserSummaryCmd.Flags().StringVar(&queriesFlags.user, "user", "", "user name to summarize (required)")
	_ = queriesUserSummaryCmd.MarkFlagRequired("user")
}
