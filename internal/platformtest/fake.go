// Package platformtest provides in-memory fakes of the control-plane
// client and the statement executor for tests. Both support per-item
// and per-call error injection.
package platformtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lakewatch/lakewatch/pkg/platform"
	"github.com/lakewatch/lakewatch/pkg/statement"
)

// FakeClient is an in-memory platform.Client backed by slices.
type FakeClient struct {
	mu sync.Mutex

	Runs       []platform.Run
	Jobs       map[int64]*platform.Job
	Clusters   []platform.ClusterSummary
	Details    map[string]*platform.ClusterDetail
	Events     map[string][]platform.ClusterEvent
	Warehouses []platform.Warehouse
	Queries    []platform.QueryInfo
	Pipelines  []platform.PipelineSummary
	PipelineDetails map[string]*platform.PipelineDetail
	Permissions map[string]*platform.ObjectPermissions

	// ListErr fails every list call when set.
	ListErr error

	// GetErrs injects per-ID failures for detail fetches. Keys are
	// cluster IDs, pipeline IDs, permission object IDs, or decimal
	// job IDs.
	GetErrs map[string]error

	// calls counts API calls by method name.
	calls map[string]int
}

var _ platform.Client = (*FakeClient)(nil)

// NewFakeClient creates an empty fake.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		Jobs:            map[int64]*platform.Job{},
		Details:         map[string]*platform.ClusterDetail{},
		Events:          map[string][]platform.ClusterEvent{},
		PipelineDetails: map[string]*platform.PipelineDetail{},
		Permissions:     map[string]*platform.ObjectPermissions{},
		GetErrs:         map[string]error{},
		calls:           map[string]int{},
	}
}

func (f *FakeClient) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

// Calls returns how many times a method was called.
func (f *FakeClient) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeClient) injected(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GetErrs[id]
}

// ListRuns implements platform.JobsAPI.
func (f *FakeClient) ListRuns(ctx context.Context, since time.Time) ([]platform.Run, error) {
	f.record("ListRuns")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	var out []platform.Run
	for _, run := range f.Runs {
		if since.IsZero() || run.StartTime >= since.UnixMilli() {
			out = append(out, run)
		}
	}
	return out, nil
}

// GetJob implements platform.JobsAPI.
func (f *FakeClient) GetJob(ctx context.Context, jobID int64) (*platform.Job, error) {
	f.record("GetJob")
	if err := f.injected(fmt.Sprintf("%d", jobID)); err != nil {
		return nil, err
	}
	job, ok := f.Jobs[jobID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return job, nil
}

// ListClusters implements platform.ClustersAPI.
func (f *FakeClient) ListClusters(ctx context.Context) ([]platform.ClusterSummary, error) {
	f.record("ListClusters")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Clusters, nil
}

// GetCluster implements platform.ClustersAPI.
func (f *FakeClient) GetCluster(ctx context.Context, clusterID string) (*platform.ClusterDetail, error) {
	f.record("GetCluster")
	if err := f.injected(clusterID); err != nil {
		return nil, err
	}
	detail, ok := f.Details[clusterID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return detail, nil
}

// ListEvents implements platform.ClustersAPI.
func (f *FakeClient) ListEvents(ctx context.Context, clusterID string, since time.Time) ([]platform.ClusterEvent, error) {
	f.record("ListEvents")
	if err := f.injected(clusterID); err != nil {
		return nil, err
	}
	var out []platform.ClusterEvent
	for _, ev := range f.Events[clusterID] {
		if since.IsZero() || ev.Timestamp >= since.UnixMilli() {
			out = append(out, ev)
		}
	}
	return out, nil
}

// ListWarehouses implements platform.WarehousesAPI.
func (f *FakeClient) ListWarehouses(ctx context.Context) ([]platform.Warehouse, error) {
	f.record("ListWarehouses")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Warehouses, nil
}

// ListQueries implements platform.QueryHistoryAPI.
func (f *FakeClient) ListQueries(ctx context.Context, since time.Time, userName string) ([]platform.QueryInfo, error) {
	f.record("ListQueries")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	var out []platform.QueryInfo
	for _, q := range f.Queries {
		if !since.IsZero() && q.StartTimeMS < since.UnixMilli() {
			continue
		}
		if userName != "" && q.UserName != userName {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// ListPipelines implements platform.PipelinesAPI.
func (f *FakeClient) ListPipelines(ctx context.Context) ([]platform.PipelineSummary, error) {
	f.record("ListPipelines")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Pipelines, nil
}

// GetPipeline implements platform.PipelinesAPI.
func (f *FakeClient) GetPipeline(ctx context.Context, pipelineID string) (*platform.PipelineDetail, error) {
	f.record("GetPipeline")
	if err := f.injected(pipelineID); err != nil {
		return nil, err
	}
	detail, ok := f.PipelineDetails[pipelineID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return detail, nil
}

// GetPermissions implements platform.PermissionsAPI.
func (f *FakeClient) GetPermissions(ctx context.Context, objectType, objectID string) (*platform.ObjectPermissions, error) {
	f.record("GetPermissions")
	if err := f.injected(objectID); err != nil {
		return nil, err
	}
	perms, ok := f.Permissions[objectType+"/"+objectID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return perms, nil
}

// FakeExecutor is an in-memory statement.Executor returning canned
// results in submission order.
type FakeExecutor struct {
	mu sync.Mutex

	// Results are returned one per Execute call, in order. When
	// exhausted the last result repeats.
	Results []*statement.Result

	// Err fails every Execute call when set.
	Err error

	// Tables controls TableExists answers. Missing keys report false.
	Tables map[string]bool

	// Statements records every executed statement.
	Statements []statement.Statement

	executed int
}

var _ statement.Executor = (*FakeExecutor)(nil)

// Execute implements statement.Executor.
func (f *FakeExecutor) Execute(ctx context.Context, stmt statement.Statement) (*statement.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Statements = append(f.Statements, stmt)
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.Results) == 0 {
		return &statement.Result{}, nil
	}
	idx := f.executed
	if idx >= len(f.Results) {
		idx = len(f.Results) - 1
	}
	f.executed++
	return f.Results[idx], nil
}

// TableExists implements statement.Executor.
func (f *FakeExecutor) TableExists(ctx context.Context, warehouseID, table string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Tables[table], nil
}

// ExecuteCount returns the number of Execute calls so far.
func (f *FakeExecutor) ExecuteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Statements)
}

// Row builds one result row from plain strings. Empty strings become
// NULL cells.
func Row(cells ...string) []statement.Value {
	row := make([]statement.Value, len(cells))
	for i, cell := range cells {
		if cell != "" {
			row[i] = statement.Text(cell)
		}
	}
	return row
}
