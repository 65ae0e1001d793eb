package platform

// Wire types for the control-plane APIs. Field names follow the JSON
// payloads; timestamps are epoch milliseconds as the APIs return them.

// JobSettings carries the subset of job settings the engine reads.
type JobSettings struct {
	Name string `json:"name"`
}

// Job is a job definition.
type Job struct {
	JobID    int64       `json:"job_id"`
	Settings JobSettings `json:"settings"`
}

// RunState is the composite state of a job run.
type RunState struct {
	LifeCycleState FieldValue `json:"life_cycle_state"`
	ResultState    FieldValue `json:"result_state"`
	StateMessage   string     `json:"state_message"`
}

// Run is a single execution of a job.
type Run struct {
	RunID     int64    `json:"run_id"`
	JobID     int64    `json:"job_id"`
	RunName   string   `json:"run_name"`
	StartTime int64    `json:"start_time"`
	EndTime   int64    `json:"end_time"`
	State     RunState `json:"state"`
	CreatorUserName string `json:"creator_user_name"`
}

// ClusterSummary is the list-level view of a compute cluster.
type ClusterSummary struct {
	ClusterID   string     `json:"cluster_id"`
	ClusterName string     `json:"cluster_name"`
	State       FieldValue `json:"state"`
}

// ClusterDetail is the full per-cluster view returned by a get call.
type ClusterDetail struct {
	ClusterID        string            `json:"cluster_id"`
	ClusterName      string            `json:"cluster_name"`
	State            FieldValue        `json:"state"`
	StartTime        int64             `json:"start_time"`
	LastActivityTime int64             `json:"last_activity_time"`
	DriverNodeTypeID string            `json:"driver_node_type_id"`
	NodeTypeID       string            `json:"node_type_id"`
	NumWorkers       int               `json:"num_workers"`
	AutoTerminationMinutes int         `json:"autotermination_minutes"`
	PolicyID         string            `json:"policy_id"`
	CreatorUserName  string            `json:"creator_user_name"`
	CustomTags       map[string]string `json:"custom_tags"`
}

// ClusterEvent is a lifecycle event from the cluster event log.
type ClusterEvent struct {
	ClusterID string     `json:"cluster_id"`
	Timestamp int64      `json:"timestamp"`
	Type      FieldValue `json:"type"`
}

// Warehouse is a SQL warehouse.
type Warehouse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	State       FieldValue `json:"state"`
	ClusterSize string     `json:"cluster_size"`
}

// QueryInfo is a query-history entry.
type QueryInfo struct {
	QueryID     string     `json:"query_id"`
	Status      FieldValue `json:"status"`
	QueryText   string     `json:"query_text"`
	UserName    string     `json:"user_name"`
	WarehouseID string     `json:"warehouse_id"`
	StartTimeMS int64      `json:"query_start_time_ms"`
	EndTimeMS   int64      `json:"query_end_time_ms"`
	DurationMS  int64      `json:"duration"`
	ErrorMessage string    `json:"error_message"`
}

// PipelineSummary is the list-level view of a streaming pipeline.
type PipelineSummary struct {
	PipelineID string     `json:"pipeline_id"`
	Name       string     `json:"name"`
	State      FieldValue `json:"state"`
}

// PipelineUpdate is one update (batch or continuous tick) of a pipeline.
type PipelineUpdate struct {
	UpdateID     string     `json:"update_id"`
	State        FieldValue `json:"state"`
	CreationTime int64      `json:"creation_time"`
	Cause        string     `json:"cause"`
}

// PipelineSpec carries the subset of pipeline configuration the engine
// reads. Continuous pipelines are the ones lag applies to.
type PipelineSpec struct {
	Continuous bool `json:"continuous"`
}

// PipelineDetail is the full per-pipeline view.
type PipelineDetail struct {
	PipelineID    string           `json:"pipeline_id"`
	Name          string           `json:"name"`
	State         FieldValue       `json:"state"`
	Cause         string           `json:"cause"`
	CreatorUserName string         `json:"creator_user_name"`
	Spec          PipelineSpec     `json:"spec"`
	LatestUpdates []PipelineUpdate `json:"latest_updates"`
}

// Permission is a single permission level held on an object.
type Permission struct {
	PermissionLevel FieldValue `json:"permission_level"`
	Inherited       bool       `json:"inherited"`
}

// AccessControl is one principal's entry in an object's ACL.
type AccessControl struct {
	UserName             string       `json:"user_name"`
	GroupName            string       `json:"group_name"`
	ServicePrincipalName string       `json:"service_principal_name"`
	AllPermissions       []Permission `json:"all_permissions"`
}

// Principal returns whichever principal field is set.
func (a AccessControl) Principal() string {
	switch {
	case a.UserName != "":
		return a.UserName
	case a.GroupName != "":
		return a.GroupName
	default:
		return a.ServicePrincipalName
	}
}

// ObjectPermissions is the full ACL of a securable object.
type ObjectPermissions struct {
	ObjectID          string          `json:"object_id"`
	ObjectType        string          `json:"object_type"`
	AccessControlList []AccessControl `json:"access_control_list"`
}
