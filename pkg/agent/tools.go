package agent

import (
	"context"
	"math"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lakewatch/lakewatch/pkg/chargeback"
	"github.com/lakewatch/lakewatch/pkg/observe"
)

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func stampPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return stamp(*t)
}

// --- Jobs ---

type longRunningJobsInput struct {
	MinDurationHours float64 `json:"min_duration_hours,omitempty" jsonschema:"minimum run duration in hours. Defaults to 4."`
	LookbackHours    float64 `json:"lookback_hours,omitempty" jsonschema:"how far back to look, in hours. Defaults to 24."`
	Limit            int     `json:"limit,omitempty" jsonschema:"maximum records to return. Defaults to 50."`
}

type jobRunOutput struct {
	JobID           int64   `json:"job_id"`
	RunID           int64   `json:"run_id"`
	JobName         string  `json:"job_name,omitempty"`
	State           string  `json:"state"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type longRunningJobsOutput struct {
	Runs  []jobRunOutput `json:"runs"`
	Count int            `json:"count"`
}

func (s *Server) handleLongRunningJobs(ctx context.Context, _ *gomcp.CallToolRequest, input longRunningJobsInput) (*gomcp.CallToolResult, longRunningJobsOutput, error) {
	records, err := s.services.Jobs.ListLongRunningJobs(ctx, observe.LongRunningJobsParams{
		MinDuration: hours(input.MinDurationHours),
		Lookback:    hours(input.LookbackHours),
		Limit:       input.Limit,
	})
	if err != nil {
		return errorResultf("listing long-running jobs: %s", err), longRunningJobsOutput{}, nil
	}

	out := longRunningJobsOutput{Runs: make([]jobRunOutput, len(records)), Count: len(records)}
	for i, r := range records {
		out.Runs[i] = jobRunOutput{
			JobID:           r.JobID,
			RunID:           r.RunID,
			JobName:         r.JobName,
			State:           r.State,
			StartTime:       stamp(r.StartTime),
			EndTime:         stampPtr(r.EndTime),
			DurationSeconds: r.DurationSeconds,
		}
	}
	return nil, out, nil
}

type failedJobsInput struct {
	LookbackHours float64 `json:"lookback_hours,omitempty" jsonschema:"how far back to look, in hours. Defaults to 24."`
	Limit         int     `json:"limit,omitempty" jsonschema:"maximum records to return. Defaults to 50."`
}

type failedJobOutput struct {
	JobID        int64  `json:"job_id"`
	RunID        int64  `json:"run_id"`
	JobName      string `json:"job_name,omitempty"`
	ResultState  string `json:"result_state"`
	EndTime      string `json:"end_time"`
	StateMessage string `json:"state_message,omitempty"`
}

type failedJobsOutput struct {
	Runs  []failedJobOutput `json:"runs"`
	Count int               `json:"count"`
}

func (s *Server) handleFailedJobs(ctx context.Context, _ *gomcp.CallToolRequest, input failedJobsInput) (*gomcp.CallToolResult, failedJobsOutput, error) {
	records, err := s.services.Jobs.ListFailedJobs(ctx, observe.FailedJobsParams{
		Lookback: hours(input.LookbackHours),
		Limit:    input.Limit,
	})
	if err != nil {
		return errorResultf("listing failed jobs: %s", err), failedJobsOutput{}, nil
	}

	out := failedJobsOutput{Runs: make([]failedJobOutput, len(records)), Count: len(records)}
	for i, r := range records {
		out.Runs[i] = failedJobOutput{
			JobID:        r.JobID,
			RunID:        r.RunID,
			JobName:      r.JobName,
			ResultState:  r.ResultState,
			EndTime:      stamp(r.EndTime),
			StateMessage: r.StateMessage,
		}
	}
	return nil, out, nil
}

// --- Clusters ---

type longRunningClustersInput struct {
	MinUptimeHours float64 `json:"min_uptime_hours,omitempty" jsonschema:"minimum uptime in hours. Defaults to 8."`
	Limit          int     `json:"limit,omitempty" jsonschema:"maximum records to return. Defaults to 50."`
}

type clusterUptimeOutput struct {
	ClusterID     string  `json:"cluster_id"`
	ClusterName   string  `json:"cluster_name,omitempty"`
	State         string  `json:"state"`
	StartTime     string  `json:"start_time"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Creator       string  `json:"creator,omitempty"`
}

type longRunningClustersOutput struct {
	Clusters []clusterUptimeOutput `json:"clusters"`
	Count    int                   `json:"count"`
}

func (s *Server) handleLongRunningClusters(ctx context.Context, _ *gomcp.CallToolRequest, input longRunningClustersInput) (*gomcp.CallToolResult, longRunningClustersOutput, error) {
	records, err := s.services.Clusters.ListLongRunningClusters(ctx, observe.LongRunningClustersParams{
		MinUptime: hours(input.MinUptimeHours),
		Limit:     input.Limit,
	})
	if err != nil {
		return errorResultf("listing long-running clusters: %s", err), longRunningClustersOutput{}, nil
	}

	out := longRunningClustersOutput{Clusters: make([]clusterUptimeOutput, len(records)), Count: len(records)}
	for i, c := range records {
		out.Clusters[i] = clusterUptimeOutput{
			ClusterID:     c.ClusterID,
			ClusterName:   c.ClusterName,
			State:         c.State,
			StartTime:     stamp(c.StartTime),
			UptimeSeconds: c.UptimeSeconds,
			Creator:       c.Creator,
		}
	}
	return nil, out, nil
}

type idleClustersInput struct {
	IdleThresholdHours float64 `json:"idle_threshold_hours,omitempty" jsonschema:"minimum idle time in hours. Defaults to 2."`
	Limit              int     `json:"limit,omitempty" jsonschema:"maximum records to return. Defaults to 50."`
}

type idleClusterOutput struct {
	ClusterID              string  `json:"cluster_id"`
	ClusterName            string  `json:"cluster_name,omitempty"`
	LastActivity           string  `json:"last_activity"`
	IdleSeconds            float64 `json:"idle_seconds"`
	AutoTerminationMinutes int     `json:"auto_termination_minutes"`
	Creator                string  `json:"creator,omitempty"`
}

type idleClustersOutput struct {
	Clusters []idleClusterOutput `json:"clusters"`
	Count    int                 `json:"count"`
}

func (s *Server) handleIdleClusters(ctx context.Context, _ *gomcp.CallToolRequest, input idleClustersInput) (*gomcp.CallToolResult, idleClustersOutput, error) {
	records, err := s.services.Clusters.ListIdleClusters(ctx, observe.IdleClustersParams{
		IdleThreshold: hours(input.IdleThresholdHours),
		Limit:         input.Limit,
	})
	if err != nil {
		return errorResultf("listing idle clusters: %s", err), idleClustersOutput{}, nil
	}

	out := idleClustersOutput{Clusters: make([]idleClusterOutput, len(records)), Count: len(records)}
	for i, c := range records {
		out.Clusters[i] = idleClusterOutput{
			ClusterID:              c.ClusterID,
			ClusterName:            c.ClusterName,
			LastActivity:           stamp(c.LastActivity),
			IdleSeconds:            c.IdleSeconds,
			AutoTerminationMinutes: c.AutoTerminationMinutes,
			Creator:                c.Creator,
		}
	}
	return nil, out, nil
}

// --- Queries ---

type slowestQueriesInput struct {
	LookbackHours float64 `json:"lookback_hours,omitempty" jsonschema:"how far back to look, in hours. Defaults to 24."`
	Limit         int     `json:"limit,omitempty" jsonschema:"maximum records to return. Defaults to 20."`
}

type slowQueryOutput struct {
	QueryID         string  `json:"query_id"`
	UserName        string  `json:"user_name,omitempty"`
	WarehouseID     string  `json:"warehouse_id,omitempty"`
	Status          string  `json:"status"`
	StartTime       string  `json:"start_time"`
	DurationSeconds float64 `json:"duration_seconds"`
	QueryText       string  `json:"query_text,omitempty"`
}

type slowestQueriesOutput struct {
	Queries []slowQueryOutput `json:"queries"`
	Count   int               `json:"count"`
}

func (s *Server) handleSlowestQueries(ctx context.Context, _ *gomcp.CallToolRequest, input slowestQueriesInput) (*gomcp.CallToolResult, slowestQueriesOutput, error) {
	records, err := s.services.Queries.TopSlowestQueries(ctx, observe.SlowestQueriesParams{
		Lookback: hours(input.LookbackHours),
		Limit:    input.Limit,
	})
	if err != nil {
		return errorResultf("listing slowest queries: %s", err), slowestQueriesOutput{}, nil
	}

	out := slowestQueriesOutput{Queries: make([]slowQueryOutput, len(records)), Count: len(records)}
	for i, q := range records {
		out.Queries[i] = slowQueryOutput{
			QueryID:         q.QueryID,
			UserName:        q.UserName,
			WarehouseID:     q.WarehouseID,
			Status:          q.Status,
			StartTime:       stamp(q.StartTime),
			DurationSeconds: q.DurationSeconds,
			QueryText:       q.QueryText,
		}
	}
	return nil, out, nil
}

type userQuerySummaryInput struct {
	UserName      string  `json:"user_name" jsonschema:"required,the user to summarize"`
	LookbackHours float64 `json:"lookback_hours,omitempty" jsonschema:"how far back to look, in hours. Defaults to 24."`
}

type userQuerySummaryOutput struct {
	UserName             string  `json:"user_name"`
	TotalQueries         int     `json:"total_queries"`
	Succeeded            int     `json:"succeeded"`
	Failed               int     `json:"failed"`
	FailureRate          float64 `json:"failure_rate"`
	MinDurationSeconds   float64 `json:"min_duration_seconds"`
	AvgDurationSeconds   float64 `json:"avg_duration_seconds"`
	MaxDurationSeconds   float64 `json:"max_duration_seconds"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
	DistinctWarehouses   int     `json:"distinct_warehouses"`
}

func (s *Server) handleUserQuerySummary(ctx context.Context, _ *gomcp.CallToolRequest, input userQuerySummaryInput) (*gomcp.CallToolResult, userQuerySummaryOutput, error) {
	if input.UserName == "" {
		return errorResult("user_name is required"), userQuerySummaryOutput{}, nil
	}

	summary, err := s.services.Queries.GetUserQuerySummary(ctx, observe.UserQuerySummaryParams{
		UserName: input.UserName,
		Lookback: hours(input.LookbackHours),
	})
	if err != nil {
		return errorResultf("summarizing queries for %s: %s", input.UserName, err), userQuerySummaryOutput{}, nil
	}

	return nil, userQuerySummaryOutput{
		UserName:             summary.UserName,
		TotalQueries:         summary.TotalQueries,
		Succeeded:            summary.Succeeded,
		Failed:               summary.Failed,
		FailureRate:          summary.FailureRate,
		MinDurationSeconds:   summary.MinDurationSeconds,
		AvgDurationSeconds:   summary.AvgDurationSeconds,
		MaxDurationSeconds:   summary.MaxDurationSeconds,
		TotalDurationSeconds: summary.TotalDurationSeconds,
		DistinctWarehouses:   summary.DistinctWarehouses,
	}, nil
}

// --- Pipelines ---

type laggingPipelinesInput struct {
	MaxLagMinutes float64 `json:"max_lag_minutes,omitempty" jsonschema:"lag threshold in minutes. Defaults to 10."`
	Limit         int     `json:"limit,omitempty" jsonschema:"maximum records to return. Defaults to 50."`
}

type laggingPipelineOutput struct {
	PipelineID     string  `json:"pipeline_id"`
	Name           string  `json:"name,omitempty"`
	State          string  `json:"state"`
	LastUpdateTime string  `json:"last_update_time,omitempty"`
	LagSeconds     float64 `json:"lag_seconds"`
}

type laggingPipelinesOutput struct {
	Pipelines []laggingPipelineOutput `json:"pipelines"`
	Count     int                     `json:"count"`
}

func (s *Server) handleLaggingPipelines(ctx context.Context, _ *gomcp.CallToolRequest, input laggingPipelinesInput) (*gomcp.CallToolResult, laggingPipelinesOutput, error) {
	records, err := s.services.Pipelines.ListLaggingPipelines(ctx, observe.LaggingPipelinesParams{
		MaxLag: minutes(input.MaxLagMinutes),
		Limit:  input.Limit,
	})
	if err != nil {
		return errorResultf("listing lagging pipelines: %s", err), laggingPipelinesOutput{}, nil
	}

	out := laggingPipelinesOutput{Pipelines: make([]laggingPipelineOutput, len(records)), Count: len(records)}
	for i, p := range records {
		out.Pipelines[i] = laggingPipelineOutput{
			PipelineID:     p.PipelineID,
			Name:           p.Name,
			State:          p.State,
			LastUpdateTime: stampPtr(p.LastUpdateTime),
			LagSeconds:     p.LagSeconds,
		}
	}
	return nil, out, nil
}

type failedPipelinesInput struct {
	LookbackHours float64 `json:"lookback_hours,omitempty" jsonschema:"how far back to look, in hours. Defaults to 24."`
	Limit         int     `json:"limit,omitempty" jsonschema:"maximum records to return. Defaults to 50."`
}

type failedPipelineOutput struct {
	PipelineID string `json:"pipeline_id"`
	Name       string `json:"name,omitempty"`
	UpdateID   string `json:"update_id,omitempty"`
	FailedAt   string `json:"failed_at"`
	Cause      string `json:"cause,omitempty"`
}

type failedPipelinesOutput struct {
	Pipelines []failedPipelineOutput `json:"pipelines"`
	Count     int                    `json:"count"`
}

func (s *Server) handleFailedPipelines(ctx context.Context, _ *gomcp.CallToolRequest, input failedPipelinesInput) (*gomcp.CallToolResult, failedPipelinesOutput, error) {
	records, err := s.services.Pipelines.ListFailedPipelines(ctx, observe.FailedPipelinesParams{
		Lookback: hours(input.LookbackHours),
		Limit:    input.Limit,
	})
	if err != nil {
		return errorResultf("listing failed pipelines: %s", err), failedPipelinesOutput{}, nil
	}

	out := failedPipelinesOutput{Pipelines: make([]failedPipelineOutput, len(records)), Count: len(records)}
	for i, p := range records {
		out.Pipelines[i] = failedPipelineOutput{
			PipelineID: p.PipelineID,
			Name:       p.Name,
			UpdateID:   p.UpdateID,
			FailedAt:   stamp(p.FailedAt),
			Cause:      p.Cause,
		}
	}
	return nil, out, nil
}

// --- Audit ---

type auditInput struct {
	LookbackHours float64 `json:"lookback_hours,omitempty" jsonschema:"how far back to look, in hours. Defaults to 24."`
	Limit         int     `json:"limit,omitempty" jsonschema:"maximum records to return. Defaults to 100."`
}

type auditEventOutput struct {
	Timestamp string `json:"timestamp"`
	UserName  string `json:"user_name,omitempty"`
	Service   string `json:"service,omitempty"`
	Action    string `json:"action"`
	SourceIP  string `json:"source_ip,omitempty"`
	Details   string `json:"details,omitempty"`
}

type auditOutput struct {
	Events []auditEventOutput `json:"events"`
	Count  int                `json:"count"`
}

func auditEvents(records []observe.AuditEvent) auditOutput {
	out := auditOutput{Events: make([]auditEventOutput, len(records)), Count: len(records)}
	for i, e := range records {
		out.Events[i] = auditEventOutput{
			Timestamp: stamp(e.Timestamp),
			UserName:  e.UserName,
			Service:   e.Service,
			Action:    e.Action,
			SourceIP:  e.SourceIP,
			Details:   e.Details,
		}
	}
	return out
}

func (s *Server) handleFailedLogins(ctx context.Context, _ *gomcp.CallToolRequest, input auditInput) (*gomcp.CallToolResult, auditOutput, error) {
	records, err := s.services.Audit.FailedLogins(ctx, observe.AuditParams{
		Lookback: hours(input.LookbackHours),
		Limit:    input.Limit,
	})
	if err != nil {
		return errorResultf("listing failed logins: %s", err), auditOutput{}, nil
	}
	return nil, auditEvents(records), nil
}

func (s *Server) handleAdminChanges(ctx context.Context, _ *gomcp.CallToolRequest, input auditInput) (*gomcp.CallToolResult, auditOutput, error) {
	records, err := s.services.Audit.RecentAdminChanges(ctx, observe.AuditParams{
		Lookback: hours(input.LookbackHours),
		Limit:    input.Limit,
	})
	if err != nil {
		return errorResultf("listing admin changes: %s", err), auditOutput{}, nil
	}
	return nil, auditEvents(records), nil
}

// --- Chargeback ---

type topCostCentersInput struct {
	LookbackDays int `json:"lookback_days,omitempty" jsonschema:"how far back to look, in days. Defaults to 7."`
	Limit        int `json:"limit,omitempty" jsonschema:"maximum records to return. Defaults to 20."`
}

type costCenterOutput struct {
	Dimension string   `json:"dimension"`
	Value     string   `json:"value"`
	Cost      *float64 `json:"cost,omitempty"`
	Units     *float64 `json:"units,omitempty"`
	Basis     string   `json:"basis"`
}

type costCentersOutput struct {
	Centers []costCenterOutput `json:"centers"`
	Count   int                `json:"count"`
}

func costCenters(records []chargeback.CostCenter) costCentersOutput {
	out := costCentersOutput{Centers: make([]costCenterOutput, len(records)), Count: len(records)}
	for i, c := range records {
		out.Centers[i] = costCenterOutput{
			Dimension: c.Dimension,
			Value:     c.Value,
			Cost:      c.Cost,
			Units:     c.Units,
			Basis:     string(c.Basis),
		}
	}
	return out
}

func (s *Server) handleTopCostCenters(ctx context.Context, _ *gomcp.CallToolRequest, input topCostCentersInput) (*gomcp.CallToolResult, costCentersOutput, error) {
	if s.services.Chargeback == nil {
		return errorResult("chargeback not configured"), costCentersOutput{}, nil
	}

	records, err := s.services.Chargeback.TopCostCenters(ctx, chargeback.TopCostCentersParams{
		LookbackDays: input.LookbackDays,
		Limit:        input.Limit,
	})
	if err != nil {
		return errorResultf("listing top cost centers: %s", err), costCentersOutput{}, nil
	}
	return nil, costCenters(records), nil
}

type costByDimensionInput struct {
	Dimension    string `json:"dimension" jsonschema:"required,the dimension to aggregate by: workspace, cluster, job, warehouse, or tag:<key>"`
	LookbackDays int    `json:"lookback_days,omitempty" jsonschema:"how far back to look, in days. Defaults to 30."`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum records to return. Defaults to 100."`
}

func (s *Server) handleCostByDimension(ctx context.Context, _ *gomcp.CallToolRequest, input costByDimensionInput) (*gomcp.CallToolResult, costCentersOutput, error) {
	if s.services.Chargeback == nil {
		return errorResult("chargeback not configured"), costCentersOutput{}, nil
	}
	if input.Dimension == "" {
		return errorResult("dimension is required"), costCentersOutput{}, nil
	}

	records, err := s.services.Chargeback.CostByDimension(ctx, chargeback.CostByDimensionParams{
		Dimension:    input.Dimension,
		LookbackDays: input.LookbackDays,
		Limit:        input.Limit,
	})
	if err != nil {
		return errorResultf("aggregating cost by %s: %s", input.Dimension, err), costCentersOutput{}, nil
	}
	return nil, costCenters(records), nil
}

type budgetStatusInput struct {
	Dimension     string  `json:"dimension" jsonschema:"required,the dimension budgets are allocated on, e.g. tag:team"`
	PeriodDays    int     `json:"period_days,omitempty" jsonschema:"the evaluation period in days. Defaults to 30."`
	WarnThreshold float64 `json:"warn_threshold,omitempty" jsonschema:"warning threshold as a fraction of budget in (0,1). Defaults to 0.8."`
}

type budgetStandingOutput struct {
	Dimension   string  `json:"dimension"`
	Value       string  `json:"value"`
	Actual      float64 `json:"actual"`
	Budget      float64 `json:"budget"`
	Utilization float64 `json:"utilization"`
	Unbudgeted  bool    `json:"unbudgeted,omitempty"`
	Level       string  `json:"level"`
}

type budgetStatusOutput struct {
	Standings []budgetStandingOutput `json:"standings"`
	Count     int                    `json:"count"`
}

func (s *Server) handleBudgetStatus(ctx context.Context, _ *gomcp.CallToolRequest, input budgetStatusInput) (*gomcp.CallToolResult, budgetStatusOutput, error) {
	if s.services.Chargeback == nil {
		return errorResult("chargeback not configured"), budgetStatusOutput{}, nil
	}
	if input.Dimension == "" {
		return errorResult("dimension is required"), budgetStatusOutput{}, nil
	}

	records, err := s.services.Chargeback.BudgetStatus(ctx, chargeback.BudgetStatusParams{
		Dimension:     input.Dimension,
		PeriodDays:    input.PeriodDays,
		WarnThreshold: input.WarnThreshold,
	})
	if err != nil {
		return errorResultf("evaluating budgets for %s: %s", input.Dimension, err), budgetStatusOutput{}, nil
	}

	out := budgetStatusOutput{Standings: make([]budgetStandingOutput, len(records)), Count: len(records)}
	for i, st := range records {
		entry := budgetStandingOutput{
			Dimension:   st.Dimension,
			Value:       st.Value,
			Actual:      st.Actual,
			Budget:      st.Budget,
			Utilization: st.Utilization,
			Level:       string(st.Level),
		}
		// +Inf does not survive JSON encoding; spend against a zero
		// budget is flagged instead.
		if math.IsInf(st.Utilization, 1) {
			entry.Utilization = 0
			entry.Unbudgeted = true
		}
		out.Standings[i] = entry
	}
	return nil, out, nil
}

// --- Security ---

type whoCanManageJobInput struct {
	JobID int64 `json:"job_id" jsonschema:"required,the job identifier"`
}

type permissionOutput struct {
	Principal       string `json:"principal"`
	PermissionLevel string `json:"permission_level"`
	Inherited       bool   `json:"inherited,omitempty"`
}

type permissionsOutput struct {
	Entries []permissionOutput `json:"entries"`
	Count   int                `json:"count"`
}

func permissions(records []observe.PermissionEntry) permissionsOutput {
	out := permissionsOutput{Entries: make([]permissionOutput, len(records)), Count: len(records)}
	for i, e := range records {
		out.Entries[i] = permissionOutput{
			Principal:       e.Principal,
			PermissionLevel: e.PermissionLevel,
			Inherited:       e.Inherited,
		}
	}
	return out
}

func (s *Server) handleWhoCanManageJob(ctx context.Context, _ *gomcp.CallToolRequest, input whoCanManageJobInput) (*gomcp.CallToolResult, permissionsOutput, error) {
	if input.JobID == 0 {
		return errorResult("job_id is required"), permissionsOutput{}, nil
	}

	records, err := s.services.Security.WhoCanManageJob(ctx, input.JobID)
	if err != nil {
		return errorResultf("resolving managers of job %d: %s", input.JobID, err), permissionsOutput{}, nil
	}
	return nil, permissions(records), nil
}

type whoCanUseClusterInput struct {
	ClusterID string `json:"cluster_id" jsonschema:"required,the cluster identifier"`
}

func (s *Server) handleWhoCanUseCluster(ctx context.Context, _ *gomcp.CallToolRequest, input whoCanUseClusterInput) (*gomcp.CallToolResult, permissionsOutput, error) {
	if input.ClusterID == "" {
		return errorResult("cluster_id is required"), permissionsOutput{}, nil
	}

	records, err := s.services.Security.WhoCanUseCluster(ctx, input.ClusterID)
	if err != nil {
		return errorResultf("resolving users of cluster %s: %s", input.ClusterID, err), permissionsOutput{}, nil
	}
	return nil, permissions(records), nil
}
