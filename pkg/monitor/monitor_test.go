package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/lakewatch/lakewatch/internal/platformtest"
	"github.com/lakewatch/lakewatch/pkg/chargeback"
	"github.com/lakewatch/lakewatch/pkg/observe"
	"github.com/lakewatch/lakewatch/pkg/platform"
	"github.com/lakewatch/lakewatch/pkg/statement"
	"github.com/lakewatch/lakewatch/pkg/telemetry/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

var monitorNow = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func budgetService(t *testing.T, executor *platformtest.FakeExecutor) *chargeback.Service {
	t.Helper()

	store, err := chargeback.NewStore(t.TempDir() + "/budgets.db")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.SetBudget(context.Background(), "tag:team", "data-eng", 1000); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	return chargeback.NewService(chargeback.ServiceConfig{
		Platform:    platformtest.NewFakeClient(),
		Executor:    executor,
		WarehouseID: "wh-1",
		UsageTable:  "billing.usage_events",
		Store:       store,
		Clock:       func() time.Time { return monitorNow },
	})
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name, value string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			match := false
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "value" && lp.GetValue() == value {
					match = true
				}
			}
			if match {
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("gauge %s{value=%q} not found", name, value)
	return 0
}

func TestRunOnceBudgetSweepSetsGauge(t *testing.T) {
	executor := &platformtest.FakeExecutor{
		Tables: map[string]bool{"billing.usage_events": true},
		Results: []*statement.Result{{
			Columns: []string{"dim_value", "cost", "units"},
			Rows: [][]statement.Value{
				platformtest.Row("data-eng", "850", "400"),
			},
		}},
	}

	collector := metrics.NewCollector(metrics.Config{Namespace: "lakewatch", Subsystem: "engine"})
	mon := New(Config{
		BudgetDimension: "tag:team",
		WarnThreshold:   0.8,
		Chargeback:      budgetService(t, executor),
		Metrics:         collector,
	})

	mon.RunOnce(context.Background())

	got := gaugeValue(t, collector.Registry(), "lakewatch_engine_budget_utilization_ratio", "data-eng")
	if got != 0.85 {
		t.Errorf("utilization gauge = %v, want 0.85", got)
	}
}

func TestRunOnceIdleClusterSweep(t *testing.T) {
	client := platformtest.NewFakeClient()
	client.Clusters = []platform.ClusterSummary{
		{ClusterID: "c-1", ClusterName: "abandoned", State: platform.Field("RUNNING")},
	}
	client.Details["c-1"] = &platform.ClusterDetail{
		ClusterID:        "c-1",
		ClusterName:      "abandoned",
		State:            platform.Field("RUNNING"),
		StartTime:        monitorNow.Add(-8 * time.Hour).UnixMilli(),
		LastActivityTime: monitorNow.Add(-3 * time.Hour).UnixMilli(),
	}

	mon := New(Config{
		IdleThreshold: time.Hour,
		Clusters: observe.NewClusters(observe.Deps{
			Platform: client,
			Clock:    func() time.Time { return monitorNow },
		}),
	})

	// The sweep must enumerate clusters even with no budget service
	// wired.
	mon.RunOnce(context.Background())

	if n := client.Calls("ListClusters"); n != 1 {
		t.Errorf("ListClusters called %d times, want 1", n)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	mon := New(Config{Schedule: "not a schedule"})
	if err := mon.Start(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
	if mon.IsRunning() {
		t.Error("monitor running after failed Start")
	}
}

func TestStartEmptyScheduleIsNoop(t *testing.T) {
	mon := New(Config{})
	if err := mon.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mon.IsRunning() {
		t.Error("monitor running without a schedule")
	}
	if mon.NextRun() != nil {
		t.Error("NextRun should be nil without a schedule")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := New(Config{Schedule: "@hourly"})
	if err := mon.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mon.IsRunning() {
		t.Fatal("monitor not running after Start")
	}
	if mon.NextRun() == nil {
		t.Error("NextRun should be set while running")
	}

	mon.Stop()
	if mon.IsRunning() {
		t.Error("monitor still running after Stop")
	}
	// Stop is idempotent.
	mon.Stop()
}
