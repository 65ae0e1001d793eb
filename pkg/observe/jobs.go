package observe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lakewatch/lakewatch/pkg/statement"
)

// Operation defaults. Zero-valued parameters take these.
const (
	DefaultLookback       = 24 * time.Hour
	DefaultJobMinDuration = 4 * time.Hour
	DefaultListLimit      = 50
)

// failedResultStates are the terminal result states counted as failures.
var failedResultStates = []string{"FAILED", "TIMEDOUT", "CANCELED", "INTERNAL_ERROR"}

// Jobs answers job-run questions.
type Jobs struct {
	deps Deps
}

// NewJobs creates the jobs domain service.
func NewJobs(deps Deps) *Jobs {
	return &Jobs{deps: deps}
}

// LongRunningJobsParams parameterizes ListLongRunningJobs. Zero values
// take the documented defaults.
type LongRunningJobsParams struct {
	MinDuration time.Duration
	Lookback    time.Duration
	Limit       int
}

// ListLongRunningJobs returns runs whose duration within the lookback
// window met the threshold, longest first. Runs still in flight count
// their duration up to the moment of the call.
func (j *Jobs) ListLongRunningJobs(ctx context.Context, params LongRunningJobsParams) ([]LongRunningJob, error) {
	if params.MinDuration == 0 {
		params.MinDuration = DefaultJobMinDuration
	}
	if params.MinDuration < 0 {
		return nil, Validationf("min_duration must be positive, got %s", params.MinDuration)
	}
	if params.Lookback == 0 {
		params.Lookback = DefaultLookback
	}
	if params.Limit == 0 {
		params.Limit = DefaultListLimit
	}
	if params.Limit < 0 {
		return nil, Validationf("limit must be positive, got %d", params.Limit)
	}

	window, err := NewWindow(j.deps.now(), params.Lookback)
	if err != nil {
		return nil, err
	}

	var fast func(context.Context) ([]LongRunningJob, error)
	if j.deps.fastPathReady() && j.deps.Tables.JobRuns != "" {
		fast = func(ctx context.Context) ([]LongRunningJob, error) {
			return j.longRunningFast(ctx, window, params)
		}
	}

	records, err := runWithFallback(ctx, j.deps, "jobs", "list_long_running_jobs", fast,
		func(ctx context.Context) ([]LongRunningJob, error) {
			return j.longRunningSlow(ctx, window, params.MinDuration)
		})
	if err != nil {
		return nil, err
	}

	return classifyAndRank(records, nil,
		func(a, b LongRunningJob) bool {
			if a.DurationSeconds != b.DurationSeconds {
				return a.DurationSeconds > b.DurationSeconds
			}
			if a.JobID != b.JobID {
				return a.JobID < b.JobID
			}
			return a.RunID < b.RunID
		},
		params.Limit), nil
}

// longRunningFast aggregates the job-run timeline table server-side.
func (j *Jobs) longRunningFast(ctx context.Context, window Window, params LongRunningJobsParams) ([]LongRunningJob, error) {
	sql := fmt.Sprintf(`
SELECT job_id, run_id, run_name, started_at, ended_at, result_state,
       (unix_millis(ended_at) - unix_millis(started_at)) / 1000.0 AS duration_seconds
FROM (
  SELECT job_id, run_id,
         MAX(run_name) AS run_name,
         MIN(period_start_time) AS started_at,
         MAX(COALESCE(period_end_time, :window_end)) AS ended_at,
         MAX(result_state) AS result_state
  FROM %s
  WHERE period_start_time >= :window_start
  GROUP BY job_id, run_id
)
WHERE unix_millis(ended_at) - unix_millis(started_at) >= :min_duration_ms
ORDER BY duration_seconds DESC, job_id ASC, run_id ASC
LIMIT :row_limit`, j.deps.Tables.JobRuns)

	result, err := j.deps.Executor.Execute(ctx, statement.Statement{
		SQL: sql,
		Params: []statement.Param{
			statement.Timestamp("window_start", window.Start),
			statement.Timestamp("window_end", window.End),
			statement.Int64("min_duration_ms", params.MinDuration.Milliseconds()),
			statement.Int64("row_limit", int64(params.Limit)),
		},
		WarehouseID: j.deps.WarehouseID,
	})
	if err != nil {
		return nil, err
	}

	records := make([]LongRunningJob, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("job timeline row has %d columns, want 7", len(row))
		}
		jobID, err := row[0].Int64()
		if err != nil {
			return nil, err
		}
		runID, err := row[1].Int64()
		if err != nil {
			return nil, err
		}
		startedAt, err := row[3].Time()
		if err != nil {
			return nil, err
		}
		duration, err := row[6].Float64()
		if err != nil {
			return nil, err
		}

		rec := LongRunningJob{
			JobID:           jobID,
			RunID:           runID,
			JobName:         row[2].S,
			State:           "RUNNING",
			StartTime:       startedAt,
			DurationSeconds: duration,
		}
		// A NULL result state means the run was still open; its end
		// bound was the window end, not a real end time.
		if row[5].Valid && row[5].S != "" {
			rec.State = row[5].S
			endedAt, err := row[4].Time()
			if err != nil {
				return nil, err
			}
			rec.EndTime = &endedAt
		}
		records = append(records, rec)
	}
	return records, nil
}

// longRunningSlow enumerates live runs and filters client-side.
func (j *Jobs) longRunningSlow(ctx context.Context, window Window, minDuration time.Duration) ([]LongRunningJob, error) {
	runs, err := j.deps.Platform.ListRuns(ctx, window.Start)
	if err != nil {
		return nil, err
	}

	var records []LongRunningJob
	for _, run := range runs {
		if run.StartTime == 0 {
			continue
		}
		start := time.UnixMilli(run.StartTime)

		// In-flight runs measure up to the window anchor.
		end := window.End
		var endPtr *time.Time
		if run.EndTime > 0 {
			end = time.UnixMilli(run.EndTime)
			e := end
			endPtr = &e
		}

		duration := end.Sub(start)
		if duration < minDuration {
			continue
		}

		state := run.State.LifeCycleState.Canonical()
		if rs := run.State.ResultState.Canonical(); rs != "" {
			state = rs
		}

		records = append(records, LongRunningJob{
			JobID:           run.JobID,
			RunID:           run.RunID,
			JobName:         run.RunName,
			State:           state,
			StartTime:       start,
			EndTime:         endPtr,
			DurationSeconds: duration.Seconds(),
		})
	}

	j.fillJobNames(ctx, records)
	return records, nil
}

// fillJobNames resolves job names for records whose run carried none.
// Name lookups fan out concurrently; a failed lookup leaves the name
// empty and never fails the operation.
func (j *Jobs) fillJobNames(ctx context.Context, records []LongRunningJob) {
	missing := map[int64]bool{}
	for _, rec := range records {
		if rec.JobName == "" {
			missing[rec.JobID] = true
		}
	}
	if len(missing) == 0 {
		return
	}

	ids := make([]int64, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}

	var mu sync.Mutex
	names := map[int64]string{}
	_ = forEachConcurrent(ctx, j.deps.fanout(), ids,
		func(ctx context.Context, id int64) error {
			job, err := j.deps.Platform.GetJob(ctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			names[id] = job.Settings.Name
			mu.Unlock()
			return nil
		},
		func(id int64, err error) {
			j.deps.log().Warn("failed to resolve job name, skipping",
				"job_id", id,
				"error", err,
			)
		})

	for i := range records {
		if records[i].JobName == "" {
			records[i].JobName = names[records[i].JobID]
		}
	}
}

// FailedJobsParams parameterizes ListFailedJobs.
type FailedJobsParams struct {
	Lookback time.Duration
	Limit    int
}

// ListFailedJobs returns runs that ended in a failed result state
// within the lookback window, newest first.
func (j *Jobs) ListFailedJobs(ctx context.Context, params FailedJobsParams) ([]FailedJob, error) {
	if params.Lookback == 0 {
		params.Lookback = DefaultLookback
	}
	if params.Limit == 0 {
		params.Limit = DefaultListLimit
	}
	if params.Limit < 0 {
		return nil, Validationf("limit must be positive, got %d", params.Limit)
	}

	window, err := NewWindow(j.deps.now(), params.Lookback)
	if err != nil {
		return nil, err
	}

	var fast func(context.Context) ([]FailedJob, error)
	if j.deps.fastPathReady() && j.deps.Tables.JobRuns != "" {
		fast = func(ctx context.Context) ([]FailedJob, error) {
			return j.failedFast(ctx, window, params.Limit)
		}
	}

	records, err := runWithFallback(ctx, j.deps, "jobs", "list_failed_jobs", fast,
		func(ctx context.Context) ([]FailedJob, error) {
			return j.failedSlow(ctx, window)
		})
	if err != nil {
		return nil, err
	}

	return classifyAndRank(records, nil,
		func(a, b FailedJob) bool {
			if !a.EndTime.Equal(b.EndTime) {
				return a.EndTime.After(b.EndTime)
			}
			if a.JobID != b.JobID {
				return a.JobID < b.JobID
			}
			return a.RunID < b.RunID
		},
		params.Limit), nil
}

func (j *Jobs) failedFast(ctx context.Context, window Window, limit int) ([]FailedJob, error) {
	sql := fmt.Sprintf(`
SELECT job_id, run_id, run_name, ended_at, result_state, state_message
FROM (
  SELECT job_id, run_id,
         MAX(run_name) AS run_name,
         MAX(period_end_time) AS ended_at,
         MAX(result_state) AS result_state,
         MAX(state_message) AS state_message
  FROM %s
  WHERE period_end_time >= :window_start
  GROUP BY job_id, run_id
)
WHERE result_state IN ('FAILED', 'TIMEDOUT', 'CANCELED', 'INTERNAL_ERROR')
ORDER BY ended_at DESC, job_id ASC, run_id ASC
LIMIT :row_limit`, j.deps.Tables.JobRuns)

	result, err := j.deps.Executor.Execute(ctx, statement.Statement{
		SQL: sql,
		Params: []statement.Param{
			statement.Timestamp("window_start", window.Start),
			statement.Int64("row_limit", int64(limit)),
		},
		WarehouseID: j.deps.WarehouseID,
	})
	if err != nil {
		return nil, err
	}

	records := make([]FailedJob, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("job timeline row has %d columns, want 6", len(row))
		}
		jobID, err := row[0].Int64()
		if err != nil {
			return nil, err
		}
		runID, err := row[1].Int64()
		if err != nil {
			return nil, err
		}
		endedAt, err := row[3].Time()
		if err != nil {
			return nil, err
		}
		records = append(records, FailedJob{
			JobID:        jobID,
			RunID:        runID,
			JobName:      row[2].S,
			EndTime:      endedAt,
			ResultState:  row[4].S,
			StateMessage: row[5].S,
		})
	}
	return records, nil
}

func (j *Jobs) failedSlow(ctx context.Context, window Window) ([]FailedJob, error) {
	runs, err := j.deps.Platform.ListRuns(ctx, window.Start)
	if err != nil {
		return nil, err
	}

	var records []FailedJob
	for _, run := range runs {
		if !run.State.ResultState.Is(failedResultStates...) {
			continue
		}
		if run.EndTime == 0 {
			continue
		}
		end := time.UnixMilli(run.EndTime)
		if !window.Contains(end) {
			continue
		}
		records = append(records, FailedJob{
			JobID:        run.JobID,
			RunID:        run.RunID,
			JobName:      run.RunName,
			ResultState:  run.State.ResultState.Canonical(),
			EndTime:      end,
			StateMessage: run.State.StateMessage,
		})
	}
	return records, nil
}
