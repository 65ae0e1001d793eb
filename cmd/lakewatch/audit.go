package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/lakewatch/lakewatch/pkg/observe"
)

var auditFlags struct {
	lookback time.Duration
	limit    int
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
	Long: `Inspect the audit system table. These commands need a configured
warehouse and audit table; without them the result is empty.`,
}

var auditFailedLoginsCmd = &cobra.Command{
	Use:   "failed-logins",
	Short: "List failed login attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.audit.FailedLogins(cmd.Context(), observe.AuditParams{
			Lookback: auditFlags.lookback,
			Limit:    auditFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var auditAdminChangesCmd = &cobra.Command{
	Use:   "admin-changes",
	Short: "List recent administrative changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.audit.RecentAdminChanges(cmd.Context(), observe.AuditParams{
			Lookback: auditFlags.lookback,
			Limit:    auditFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditFailedLoginsCmd, auditAdminChangesCmd)

	auditCmd.PersistentFlags().DurationVar(&auditFlags.lookback, "lookback", 0, "how far back to look (default 24h)")
	auditCmd.PersistentFlags().IntVar(&auditFlags.limit, "limit", 0, "maximum records (default 100)")
}
