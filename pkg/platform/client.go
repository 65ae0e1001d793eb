package platform

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by single-resource lookups when the control
// plane reports the object does not exist (HTTP 404).
var ErrNotFound = errors.New("platform: resource not found")

// JobsAPI lists job runs and fetches job definitions.
type JobsAPI interface {
	// ListRuns returns runs started at or after since, newest first.
	// Passing the zero time lists without a lower bound.
	ListRuns(ctx context.Context, since time.Time) ([]Run, error)

	// GetJob fetches a job definition by ID.
	GetJob(ctx context.Context, jobID int64) (*Job, error)
}

// ClustersAPI enumerates compute clusters.
type ClustersAPI interface {
	// ListClusters returns all clusters visible to the caller.
	ListClusters(ctx context.Context) ([]ClusterSummary, error)

	// GetCluster fetches the full detail view of one cluster.
	GetCluster(ctx context.Context, clusterID string) (*ClusterDetail, error)

	// ListEvents returns lifecycle events for a cluster within the
	// window, newest first.
	ListEvents(ctx context.Context, clusterID string, since time.Time) ([]ClusterEvent, error)
}

// WarehousesAPI enumerates SQL warehouses.
type WarehousesAPI interface {
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
}

// QueryHistoryAPI reads the SQL query history.
type QueryHistoryAPI interface {
	// ListQueries returns query-history entries started at or after
	// since. userName, when non-empty, filters server-side.
	ListQueries(ctx context.Context, since time.Time, userName string) ([]QueryInfo, error)
}

// PipelinesAPI enumerates streaming pipelines.
type PipelinesAPI interface {
	ListPipelines(ctx context.Context) ([]PipelineSummary, error)
	GetPipeline(ctx context.Context, pipelineID string) (*PipelineDetail, error)
}

// PermissionsAPI reads object ACLs.
type PermissionsAPI interface {
	// GetPermissions fetches the ACL of one object. objectType is the
	// API path segment ("jobs", "clusters").
	GetPermissions(ctx context.Context, objectType, objectID string) (*ObjectPermissions, error)
}

// Client bundles the control-plane surfaces the engine reads.
type Client interface {
	JobsAPI
	ClustersAPI
	WarehousesAPI
	QueryHistoryAPI
	PipelinesAPI
	PermissionsAPI
}
