package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lakewatch/lakewatch/internal/platformtest"
	"github.com/lakewatch/lakewatch/pkg/platform"
)

func addPipeline(client *platformtest.FakeClient, id, name, state string, continuous bool, updates ...platform.PipelineUpdate) {
	client.Pipelines = append(client.Pipelines, platform.PipelineSummary{
		PipelineID: id, Name: name, State: platform.Field(state),
	})
	client.PipelineDetails[id] = &platform.PipelineDetail{
		PipelineID:    id,
		Name:          name,
		State:         platform.Field(state),
		Spec:          platform.PipelineSpec{Continuous: continuous},
		LatestUpdates: updates,
	}
}

func update(id, state string, at time.Time) platform.PipelineUpdate {
	return platform.PipelineUpdate{
		UpdateID:     id,
		State:        platform.Field(state),
		CreationTime: at.UnixMilli(),
	}
}

func TestListLaggingPipelines(t *testing.T) {
	client := platformtest.NewFakeClient()
	// Twenty minutes behind against a ten minute threshold.
	addPipeline(client, "p-lag", "events", "RUNNING", true,
		update("u-1", "COMPLETED", testNow.Add(-20*time.Minute)))
	addPipeline(client, "p-fresh", "clicks", "RUNNING", true,
		update("u-2", "COMPLETED", testNow.Add(-time.Minute)))
	// Batch pipelines never lag.
	addPipeline(client, "p-batch", "daily", "IDLE", false,
		update("u-3", "COMPLETED", testNow.Add(-26*time.Hour)))

	pipelines := NewPipelines(testDeps(client))
	got, err := pipelines.ListLaggingPipelines(context.Background(), LaggingPipelinesParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].PipelineID != "p-lag" {
		t.Errorf("got %s, want p-lag", got[0].PipelineID)
	}
	if got[0].LagSeconds != 20*60 {
		t.Errorf("LagSeconds = %v, want %v", got[0].LagSeconds, 20*60)
	}
}

func TestListLaggingPipelinesOrder(t *testing.T) {
	client := platformtest.NewFakeClient()
	addPipeline(client, "p-a", "a", "RUNNING", true, update("u-1", "COMPLETED", testNow.Add(-30*time.Minute)))
	addPipeline(client, "p-b", "b", "RUNNING", true, update("u-2", "COMPLETED", testNow.Add(-2*time.Hour)))

	pipelines := NewPipelines(testDeps(client))
	got, err := pipelines.ListLaggingPipelines(context.Background(), LaggingPipelinesParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].PipelineID != "p-b" {
		t.Errorf("most lagged pipeline should sort first: %+v", got)
	}
}

func TestListFailedPipelines(t *testing.T) {
	client := platformtest.NewFakeClient()
	addPipeline(client, "p-failed", "orders", "FAILED", false,
		update("u-old", "COMPLETED", testNow.Add(-6*time.Hour)),
		update("u-bad", "FAILED", testNow.Add(-time.Hour)))
	addPipeline(client, "p-recovered", "users", "RUNNING", false,
		update("u-was-bad", "FAILED", testNow.Add(-4*time.Hour)),
		update("u-fixed", "COMPLETED", testNow.Add(-2*time.Hour)))

	pipelines := NewPipelines(testDeps(client))
	got, err := pipelines.ListFailedPipelines(context.Background(), FailedPipelinesParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A pipeline whose latest update succeeded has recovered and is
	// not reported, even with an older failure in the window.
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].PipelineID != "p-failed" || got[0].UpdateID != "u-bad" {
		t.Errorf("got %+v, want p-failed/u-bad", got[0])
	}
}

func TestListPipelinesPerItemFailureIsolation(t *testing.T) {
	client := platformtest.NewFakeClient()
	addPipeline(client, "p-good", "good", "RUNNING", true, update("u-1", "COMPLETED", testNow.Add(-time.Hour)))
	addPipeline(client, "p-bad", "bad", "RUNNING", true)
	client.GetErrs["p-bad"] = errors.New("transient failure")

	pipelines := NewPipelines(testDeps(client))
	got, err := pipelines.ListLaggingPipelines(context.Background(), LaggingPipelinesParams{})
	if err != nil {
		t.Fatalf("a single failed detail fetch must not fail the operation: %v", err)
	}
	if len(got) != 1 || got[0].PipelineID != "p-good" {
		t.Errorf("got %+v, want only p-good", got)
	}
}

func TestListLaggingPipelinesValidation(t *testing.T) {
	pipelines := NewPipelines(testDeps(platformtest.NewFakeClient()))
	_, err := pipelines.ListLaggingPipelines(context.Background(), LaggingPipelinesParams{MaxLag: -time.Second})
	if !IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}
