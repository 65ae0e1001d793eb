package agent

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lakewatch/lakewatch/pkg/chargeback"
	"github.com/lakewatch/lakewatch/pkg/observe"
)

// Services bundles everything the tools answer from. Chargeback may be
// nil when no billing access is configured; its tools then report an
// error result instead of failing the session.
type Services struct {
	Jobs       *observe.Jobs
	Clusters   *observe.Clusters
	Queries    *observe.Queries
	Pipelines  *observe.Pipelines
	Security   *observe.Security
	Audit      *observe.Audit
	Chargeback *chargeback.Service
}

// Server wraps the services and exposes them as MCP tools over stdio.
type Server struct {
	server   *gomcp.Server
	services Services
}

// NewServer creates the MCP server and registers every tool.
func NewServer(services Services, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{services: services}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "lakewatch", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the client disconnects or ctx is
// canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying server, for in-memory transports in
// tests.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_long_running_jobs",
		Description: "List job runs whose duration met a threshold within a lookback window, longest first. Includes runs still in flight.",
	}, s.handleLongRunningJobs)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_failed_jobs",
		Description: "List job runs that ended in a failed result state within a lookback window, newest first.",
	}, s.handleFailedJobs)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_long_running_clusters",
		Description: "List active clusters whose uptime met a threshold, longest up first.",
	}, s.handleLongRunningClusters)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_idle_clusters",
		Description: "List running clusters with no activity for at least a threshold, most idle first. Candidates for termination.",
	}, s.handleIdleClusters)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "top_slowest_queries",
		Description: "List the slowest queries in a lookback window, slowest first. Query text is truncated.",
	}, s.handleSlowestQueries)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "user_query_summary",
		Description: "Aggregate one user's query activity over a lookback window: counts, failure rate, duration statistics.",
	}, s.handleUserQuerySummary)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_lagging_pipelines",
		Description: "List continuous pipelines whose most recent update is older than a lag threshold, most lagged first.",
	}, s.handleLaggingPipelines)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_failed_pipelines",
		Description: "List pipelines whose most recent update within a lookback window failed, newest failure first.",
	}, s.handleFailedPipelines)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "failed_logins",
		Description: "List failed login attempts from the audit log, newest first. Empty when no audit table is provisioned.",
	}, s.handleFailedLogins)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "recent_admin_changes",
		Description: "List recent administrative changes (accounts, groups, workspace settings, cluster policies) from the audit log, newest first.",
	}, s.handleAdminChanges)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "top_cost_centers",
		Description: "List the highest-spend cost centers across workspace, cluster, job and warehouse dimensions, highest first. Falls back to estimated consumption units without billing data.",
	}, s.handleTopCostCenters)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "cost_by_dimension",
		Description: "Aggregate spend by one dimension (workspace, cluster, job, warehouse, or tag:<key>), highest first.",
	}, s.handleCostByDimension)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "budget_status",
		Description: "Evaluate actual spend against budget allocations for one dimension, most utilized first. Levels: within, warning, breached.",
	}, s.handleBudgetStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "who_can_manage_job",
		Description: "List the principals holding a managing permission on a job.",
	}, s.handleWhoCanManageJob)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "who_can_use_cluster",
		Description: "List the principals who can attach to, restart or manage a cluster.",
	}, s.handleWhoCanUseCluster)
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

func errorResultf(format string, args ...any) *gomcp.CallToolResult {
	return errorResult(fmt.Sprintf(format, args...))
}
