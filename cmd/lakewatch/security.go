package main

import (
	"github.com/spf13/cobra"
)

var securityFlags struct {
	jobID     int64
	clusterID string
}

var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Inspect object permissions",
}

var securityJobManagersCmd = &cobra.Command{
	Use:   "job-managers",
	Short: "List principals who can manage a job",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.security.WhoCanManageJob(cmd.Context(), securityFlags.jobID)
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var securityClusterUsersCmd = &cobra.Command{
	Use:   "cluster-users",
	Short: "List principals who can use a cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.security.WhoCanUseCluster(cmd.Context(), securityFlags.clusterID)
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

func init() {
	rootCmd.AddCommand(securityCmd)
	securityCmd.AddCommand(securityJobManagersCmd, securityClusterUsersCmd)

	securityJobManagersCmd.Flags().Int64Var(&securityFlags.jobID, "job-id", 0, "job identifier (required)")
	_ = securityJobManagersCmd.MarkFlagRequired("job-id")
	securityClusterUsersCmd.Flags().StringVar(&securityFlags.clusterID, "cluster-id", "", "cluster identifier (required)")
	_ = securityClusterUsersCmd.MarkFlagRequired("cluster-id")
}
