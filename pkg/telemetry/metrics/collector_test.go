package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollector(Config{})

	c.RecordQuery("jobs", "fast", "ok", 120*time.Millisecond)
	c.RecordFallback("jobs", "list_long_running")
	c.SetBudgetUtilization("tag:team", "data-eng", 0.85)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`lakewatch_engine_queries_total{domain="jobs",path="fast",status="ok"} 1`,
		`lakewatch_engine_fallbacks_total{domain="jobs",operation="list_long_running"} 1`,
		`lakewatch_engine_budget_utilization_ratio{dimension="tag:team",value="data-eng"} 0.85`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector

	// All recording methods are no-ops on a nil collector.
	c.RecordQuery("jobs", "fast", "ok", time.Second)
	c.RecordFallback("jobs", "op")
	c.SetBudgetUtilization("tag:team", "x", 1)

	if c.Registry() != nil {
		t.Error("Registry() on nil collector should be nil")
	}
	if c.Handler() == nil {
		t.Error("Handler() on nil collector should still serve")
	}
}
