package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lakewatch/lakewatch/internal/platformtest"
	"github.com/lakewatch/lakewatch/pkg/platform"
)

func addCluster(client *platformtest.FakeClient, id, name, state string, start, lastActivity time.Time) {
	detail := &platform.ClusterDetail{
		ClusterID:   id,
		ClusterName: name,
		State:       platform.Field(state),
	}
	if !start.IsZero() {
		detail.StartTime = start.UnixMilli()
	}
	if !lastActivity.IsZero() {
		detail.LastActivityTime = lastActivity.UnixMilli()
	}
	client.Clusters = append(client.Clusters, platform.ClusterSummary{
		ClusterID: id, ClusterName: name, State: platform.Field(state),
	})
	client.Details[id] = detail
}

func TestListLongRunningClusters(t *testing.T) {
	client := platformtest.NewFakeClient()
	addCluster(client, "c-old", "analytics", "RUNNING", testNow.Add(-12*time.Hour), time.Time{})
	addCluster(client, "c-new", "scratch", "RUNNING", testNow.Add(-time.Hour), time.Time{})
	addCluster(client, "c-stopped", "stopped", "TERMINATED", testNow.Add(-48*time.Hour), time.Time{})

	clusters := NewClusters(testDeps(client))
	got, err := clusters.ListLongRunningClusters(context.Background(), LongRunningClustersParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].ClusterID != "c-old" {
		t.Errorf("got %s, want c-old", got[0].ClusterID)
	}
	if got[0].UptimeSeconds != 12*3600 {
		t.Errorf("UptimeSeconds = %v, want %v", got[0].UptimeSeconds, 12*3600)
	}
}

func TestListLongRunningClustersLowercaseState(t *testing.T) {
	// States canonicalize case-insensitively.
	client := platformtest.NewFakeClient()
	addCluster(client, "c-1", "etl", "running", testNow.Add(-10*time.Hour), time.Time{})

	clusters := NewClusters(testDeps(client))
	got, err := clusters.ListLongRunningClusters(context.Background(), LongRunningClustersParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].State != "RUNNING" {
		t.Errorf("State = %q, want canonical RUNNING", got[0].State)
	}
}

func TestListIdleClusters(t *testing.T) {
	client := platformtest.NewFakeClient()
	// Idle three hours against a one hour threshold.
	addCluster(client, "c-idle", "abandoned", "RUNNING", testNow.Add(-8*time.Hour), testNow.Add(-3*time.Hour))
	addCluster(client, "c-busy", "active", "RUNNING", testNow.Add(-8*time.Hour), testNow.Add(-5*time.Minute))

	clusters := NewClusters(testDeps(client))
	got, err := clusters.ListIdleClusters(context.Background(), IdleClustersParams{IdleThreshold: time.Hour})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].ClusterID != "c-idle" {
		t.Errorf("got %s, want c-idle", got[0].ClusterID)
	}
	if got[0].IdleSeconds != 3*3600 {
		t.Errorf("IdleSeconds = %v, want %v", got[0].IdleSeconds, 3*3600)
	}
}

func TestListIdleClustersActivityFallsBackToStart(t *testing.T) {
	client := platformtest.NewFakeClient()
	// No last activity reported: idleness measures from start time.
	addCluster(client, "c-quiet", "quiet", "RUNNING", testNow.Add(-4*time.Hour), time.Time{})

	clusters := NewClusters(testDeps(client))
	got, err := clusters.ListIdleClusters(context.Background(), IdleClustersParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].IdleSeconds != 4*3600 {
		t.Errorf("IdleSeconds = %v, want %v", got[0].IdleSeconds, 4*3600)
	}
}

func TestListClustersPerItemFailureIsolation(t *testing.T) {
	client := platformtest.NewFakeClient()
	addCluster(client, "c-good", "good", "RUNNING", testNow.Add(-10*time.Hour), time.Time{})
	addCluster(client, "c-bad", "bad", "RUNNING", testNow.Add(-10*time.Hour), time.Time{})
	client.GetErrs["c-bad"] = errors.New("transient failure")

	clusters := NewClusters(testDeps(client))
	got, err := clusters.ListLongRunningClusters(context.Background(), LongRunningClustersParams{})
	if err != nil {
		t.Fatalf("a single failed detail fetch must not fail the operation: %v", err)
	}
	if len(got) != 1 || got[0].ClusterID != "c-good" {
		t.Errorf("got %+v, want only c-good", got)
	}
}

func TestListClustersListFailure(t *testing.T) {
	client := platformtest.NewFakeClient()
	client.ListErr = errors.New("api down")

	clusters := NewClusters(testDeps(client))
	_, err := clusters.ListLongRunningClusters(context.Background(), LongRunningClustersParams{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestIdleClustersValidation(t *testing.T) {
	clusters := NewClusters(testDeps(platformtest.NewFakeClient()))
	_, err := clusters.ListIdleClusters(context.Background(), IdleClustersParams{IdleThreshold: -time.Minute})
	if !IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}
