package observe

import "time"

// Output records. Every record is a stable typed view of platform
// state: field names do not follow the wire payloads of any one API,
// and optional values are pointers rather than zero-filled.

// LongRunningJob is a job run whose duration met the threshold.
// In-flight runs report duration up to the query's "now".
type LongRunningJob struct {
	JobID           int64      `json:"job_id"`
	RunID           int64      `json:"run_id"`
	JobName         string     `json:"job_name,omitempty"`
	State           string     `json:"state"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
}

// FailedJob is a job run that ended in a failed result state.
type FailedJob struct {
	JobID        int64     `json:"job_id"`
	RunID        int64     `json:"run_id"`
	JobName      string    `json:"job_name,omitempty"`
	ResultState  string    `json:"result_state"`
	EndTime      time.Time `json:"end_time"`
	StateMessage string    `json:"state_message,omitempty"`
}

// LongRunningCluster is an active cluster whose uptime met the
// threshold.
type LongRunningCluster struct {
	ClusterID     string    `json:"cluster_id"`
	ClusterName   string    `json:"cluster_name,omitempty"`
	State         string    `json:"state"`
	StartTime     time.Time `json:"start_time"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Creator       string    `json:"creator,omitempty"`
}

// IdleCluster is a running cluster with no recent activity.
type IdleCluster struct {
	ClusterID              string    `json:"cluster_id"`
	ClusterName            string    `json:"cluster_name,omitempty"`
	LastActivity           time.Time `json:"last_activity"`
	IdleSeconds            float64   `json:"idle_seconds"`
	AutoTerminationMinutes int       `json:"auto_termination_minutes"`
	Creator                string    `json:"creator,omitempty"`
}

// SlowQuery is one query-history entry ranked by duration.
type SlowQuery struct {
	QueryID         string    `json:"query_id"`
	UserName        string    `json:"user_name,omitempty"`
	WarehouseID     string    `json:"warehouse_id,omitempty"`
	Status          string    `json:"status"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	QueryText       string    `json:"query_text,omitempty"`
}

// UserQuerySummary aggregates one user's query activity over a window.
type UserQuerySummary struct {
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

// LaggingPipeline is a continuous pipeline whose last update is older
// than the lag threshold.
type LaggingPipeline struct {
	PipelineID     string     `json:"pipeline_id"`
	Name           string     `json:"name,omitempty"`
	State          string     `json:"state"`
	LastUpdateTime *time.Time `json:"last_update_time,omitempty"`
	LagSeconds     float64    `json:"lag_seconds"`
}

// FailedPipeline is a pipeline whose most recent update in the window
// failed.
type FailedPipeline struct {
	PipelineID string    `json:"pipeline_id"`
	Name       string    `json:"name,omitempty"`
	UpdateID   string    `json:"update_id,omitempty"`
	FailedAt   time.Time `json:"failed_at"`
	Cause      string    `json:"cause,omitempty"`
}

// PermissionEntry is one principal's effective permission on an object.
type PermissionEntry struct {
	Principal       string `json:"principal"`
	PermissionLevel string `json:"permission_level"`
	Inherited       bool   `json:"inherited"`
}

// AuditEvent is one entry from the audit system table.
type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	UserName  string    `json:"user_name,omitempty"`
	Service   string    `json:"service,omitempty"`
	Action    string    `json:"action"`
	SourceIP  string    `json:"source_ip,omitempty"`
	Details   string    `json:"details,omitempty"`
}
