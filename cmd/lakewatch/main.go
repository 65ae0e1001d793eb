// Lakewatch answers operational health and chargeback questions about
// a lakehouse workspace: long-running and failed jobs, idle clusters,
// slow queries, lagging pipelines, audit activity, cost centers and
// budget standing.
//
// Usage:
//
//	# Long-running job runs over the last day
//	lakewatch jobs long-running
//
//	# Clusters idle for more than two hours
//	lakewatch clusters idle
//
//	# Spend by team tag over the last month
//	lakewatch usage by-dimension --dimension tag:team
//
//	# Budget standing with local allocations
//	lakewatch budget set --dimension tag:team --value data-eng --amount 1000
//	lakewatch budget status --dimension tag:team
//
//	# Serve the MCP tools over stdio
//	lakewatch mcp serve
//
//	# Run the scheduled sweeps in the foreground
//	lakewatch monitor run
package main

func main() {
	Execute()
}
