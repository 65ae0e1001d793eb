package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lakewatch/lakewatch/internal/platformtest"
	"github.com/lakewatch/lakewatch/pkg/platform"
	"github.com/lakewatch/lakewatch/pkg/statement"
)

var testNow = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func testDeps(client platform.Client) Deps {
	return Deps{
		Platform: client,
		Clock:    func() time.Time { return testNow },
	}
}

func runAt(jobID, runID int64, name string, start time.Time, end time.Time, lifecycle, result string) platform.Run {
	run := platform.Run{
		JobID:     jobID,
		RunID:     runID,
		RunName:   name,
		StartTime: start.UnixMilli(),
		State: platform.RunState{
			LifeCycleState: platform.Field(lifecycle),
			ResultState:    platform.Field(result),
		},
	}
	if !end.IsZero() {
		run.EndTime = end.UnixMilli()
	}
	return run
}

func TestListLongRunningJobsActiveRun(t *testing.T) {
	client := platformtest.NewFakeClient()
	// Active for six hours against a four hour threshold.
	client.Runs = []platform.Run{
		runAt(1, 100, "nightly-etl", testNow.Add(-6*time.Hour), time.Time{}, "RUNNING", ""),
		runAt(2, 200, "quick-sync", testNow.Add(-time.Hour), time.Time{}, "RUNNING", ""),
	}

	jobs := NewJobs(testDeps(client))
	got, err := jobs.ListLongRunningJobs(context.Background(), LongRunningJobsParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	rec := got[0]
	if rec.JobID != 1 || rec.RunID != 100 {
		t.Errorf("got job %d run %d, want job 1 run 100", rec.JobID, rec.RunID)
	}
	if rec.DurationSeconds != 21600 {
		t.Errorf("DurationSeconds = %v, want 21600", rec.DurationSeconds)
	}
	if rec.EndTime != nil {
		t.Error("in-flight run should have nil EndTime")
	}
	if rec.State != "RUNNING" {
		t.Errorf("State = %q, want RUNNING", rec.State)
	}
}

func TestListLongRunningJobsOrderAndLimit(t *testing.T) {
	client := platformtest.NewFakeClient()
	client.Runs = []platform.Run{
		runAt(1, 1, "five-hours", testNow.Add(-5*time.Hour), time.Time{}, "RUNNING", ""),
		runAt(2, 2, "ten-hours", testNow.Add(-10*time.Hour), time.Time{}, "RUNNING", ""),
		runAt(3, 3, "seven-hours", testNow.Add(-7*time.Hour), time.Time{}, "RUNNING", ""),
	}

	jobs := NewJobs(testDeps(client))
	got, err := jobs.ListLongRunningJobs(context.Background(), LongRunningJobsParams{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].JobID != 2 || got[1].JobID != 3 {
		t.Errorf("got order [%d %d], want [2 3] (longest first)", got[0].JobID, got[1].JobID)
	}
}

func TestListLongRunningJobsValidation(t *testing.T) {
	jobs := NewJobs(testDeps(platformtest.NewFakeClient()))

	tests := []struct {
		name   string
		params LongRunningJobsParams
	}{
		{name: "negative lookback", params: LongRunningJobsParams{Lookback: -time.Hour}},
		{name: "negative limit", params: LongRunningJobsParams{Limit: -1}},
		{name: "negative min duration", params: LongRunningJobsParams{MinDuration: -time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jobs.ListLongRunningJobs(context.Background(), tt.params)
			if !IsValidation(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestListLongRunningJobsFastPath(t *testing.T) {
	executor := &platformtest.FakeExecutor{
		Results: []*statement.Result{{
			Columns: []string{"job_id", "run_id", "run_name", "started_at", "ended_at", "result_state", "duration_seconds"},
			Rows: [][]statement.Value{
				platformtest.Row("7", "70", "warehouse-load", "2026-08-26 02:00:00", "2026-08-26 11:00:00", "SUCCESS", "32400"),
				{statement.Text("8"), statement.Text("80"), statement.Text("streaming-ingest"),
					statement.Text("2026-08-26 06:00:00"), statement.Text("2026-08-26 12:00:00"), statement.Null, statement.Text("21600")},
			},
		}},
	}

	deps := testDeps(platformtest.NewFakeClient())
	deps.Executor = executor
	deps.WarehouseID = "wh-1"
	deps.Tables.JobRuns = "system.lakeflow.job_run_timeline"

	jobs := NewJobs(deps)
	got, err := jobs.ListLongRunningJobs(context.Background(), LongRunningJobsParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].JobID != 7 || got[0].State != "SUCCESS" || got[0].EndTime == nil {
		t.Errorf("finished run decoded wrong: %+v", got[0])
	}
	if got[1].JobID != 8 || got[1].State != "RUNNING" || got[1].EndTime != nil {
		t.Errorf("open run decoded wrong: %+v", got[1])
	}

	// The fast path bound its inputs as parameters, not SQL text.
	stmt := executor.Statements[0]
	names := map[string]bool{}
	for _, p := range stmt.Params {
		names[p.Name] = true
	}
	for _, want := range []string{"window_start", "window_end", "min_duration_ms", "row_limit"} {
		if !names[want] {
			t.Errorf("missing bound parameter %q", want)
		}
	}
}

func TestListLongRunningJobsFallsBackOnce(t *testing.T) {
	client := platformtest.NewFakeClient()
	client.Runs = []platform.Run{
		runAt(1, 100, "nightly-etl", testNow.Add(-6*time.Hour), time.Time{}, "RUNNING", ""),
	}

	executor := &platformtest.FakeExecutor{Err: errors.New("warehouse unavailable")}

	deps := testDeps(client)
	deps.Executor = executor
	deps.WarehouseID = "wh-1"
	deps.Tables.JobRuns = "system.lakeflow.job_run_timeline"

	jobs := NewJobs(deps)
	got, err := jobs.ListLongRunningJobs(context.Background(), LongRunningJobsParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 || got[0].JobID != 1 {
		t.Fatalf("fallback did not produce the slow-path result: %+v", got)
	}
	if executor.ExecuteCount() != 1 {
		t.Errorf("fast path ran %d times, want exactly 1", executor.ExecuteCount())
	}
	if client.Calls("ListRuns") != 1 {
		t.Errorf("slow path ran %d times, want exactly 1", client.Calls("ListRuns"))
	}
}

func TestListLongRunningJobsBothPathsFail(t *testing.T) {
	client := platformtest.NewFakeClient()
	client.ListErr = errors.New("api down")

	executor := &platformtest.FakeExecutor{Err: errors.New("warehouse unavailable")}

	deps := testDeps(client)
	deps.Executor = executor
	deps.WarehouseID = "wh-1"
	deps.Tables.JobRuns = "system.lakeflow.job_run_timeline"

	jobs := NewJobs(deps)
	_, err := jobs.ListLongRunningJobs(context.Background(), LongRunningJobsParams{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestListLongRunningJobsResolvesJobNames(t *testing.T) {
	client := platformtest.NewFakeClient()
	client.Runs = []platform.Run{
		runAt(5, 500, "", testNow.Add(-6*time.Hour), time.Time{}, "RUNNING", ""),
		runAt(6, 600, "", testNow.Add(-6*time.Hour), time.Time{}, "RUNNING", ""),
	}
	client.Jobs[5] = &platform.Job{JobID: 5, Settings: platform.JobSettings{Name: "resolved-name"}}
	client.GetErrs["6"] = errors.New("permission denied")

	jobs := NewJobs(testDeps(client))
	got, err := jobs.ListLongRunningJobs(context.Background(), LongRunningJobsParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d records, want 2 (failed name lookup must not drop the record)", len(got))
	}
	byJob := map[int64]LongRunningJob{}
	for _, rec := range got {
		byJob[rec.JobID] = rec
	}
	if byJob[5].JobName != "resolved-name" {
		t.Errorf("job 5 name = %q, want resolved-name", byJob[5].JobName)
	}
	if byJob[6].JobName != "" {
		t.Errorf("job 6 name = %q, want empty after failed lookup", byJob[6].JobName)
	}
}

func TestListFailedJobs(t *testing.T) {
	client := platformtest.NewFakeClient()
	client.Runs = []platform.Run{
		runAt(1, 10, "ok-job", testNow.Add(-3*time.Hour), testNow.Add(-2*time.Hour), "TERMINATED", "SUCCESS"),
		runAt(2, 20, "failed-job", testNow.Add(-5*time.Hour), testNow.Add(-4*time.Hour), "TERMINATED", "FAILED"),
		runAt(3, 30, "timed-out-job", testNow.Add(-2*time.Hour), testNow.Add(-time.Hour), "TERMINATED", "TIMEDOUT"),
		runAt(4, 40, "old-failure", testNow.Add(-48*time.Hour), testNow.Add(-47*time.Hour), "TERMINATED", "FAILED"),
	}

	jobs := NewJobs(testDeps(client))
	got, err := jobs.ListFailedJobs(context.Background(), FailedJobsParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	// Newest failure first.
	if got[0].JobID != 3 || got[1].JobID != 2 {
		t.Errorf("got order [%d %d], want [3 2]", got[0].JobID, got[1].JobID)
	}
	if got[0].ResultState != "TIMEDOUT" {
		t.Errorf("ResultState = %q, want TIMEDOUT", got[0].ResultState)
	}
}
