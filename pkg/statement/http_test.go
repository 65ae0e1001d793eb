package statement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestExecutor(t *testing.T, handler http.Handler) *HTTPExecutor {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	executor, err := NewHTTPExecutor(HTTPExecutorConfig{
		Host:         srv.URL,
		Token:        "test-token",
		WarehouseID:  "wh-1",
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewHTTPExecutor: %v", err)
	}
	return executor
}

func TestExecuteSendsParameters(t *testing.T) {
	var gotBody map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		fmt.Fprint(w, `{
			"statement_id": "st-1",
			"status": {"state": "SUCCEEDED"},
			"manifest": {"schema": {"columns": [{"name": "job_id"}, {"name": "duration"}]}},
			"result": {"data_array": [["7", "3600"], ["8", null]]}
		}`)
	})

	executor := newTestExecutor(t, handler)
	result, err := executor.Execute(context.Background(), Statement{
		SQL: "SELECT job_id, duration FROM runs WHERE duration >= :min_duration_ms",
		Params: []Param{
			Int64("min_duration_ms", 3600000),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotBody["warehouse_id"] != "wh-1" {
		t.Errorf("warehouse_id = %v", gotBody["warehouse_id"])
	}
	if gotBody["on_wait_timeout"] != "CONTINUE" {
		t.Errorf("on_wait_timeout = %v", gotBody["on_wait_timeout"])
	}
	params, ok := gotBody["parameters"].([]any)
	if !ok || len(params) != 1 {
		t.Fatalf("parameters = %v", gotBody["parameters"])
	}
	p := params[0].(map[string]any)
	if p["name"] != "min_duration_ms" || p["value"] != "3600000" {
		t.Errorf("param = %v", p)
	}

	if len(result.Columns) != 2 || result.Columns[0] != "job_id" {
		t.Errorf("Columns = %v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(result.Rows))
	}
	if result.Rows[1][1].Valid {
		t.Error("NULL cell decoded as valid")
	}
}

func TestExecutePollsUntilTerminal(t *testing.T) {
	var polls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"statement_id": "st-2", "status": {"state": "PENDING"}}`)
			return
		}
		polls++
		if polls < 2 {
			fmt.Fprint(w, `{"statement_id": "st-2", "status": {"state": "RUNNING"}}`)
			return
		}
		fmt.Fprint(w, `{
			"statement_id": "st-2",
			"status": {"state": "SUCCEEDED"},
			"manifest": {"schema": {"columns": [{"name": "n"}]}},
			"result": {"data_array": [["1"]]}
		}`)
	})

	executor := newTestExecutor(t, handler)
	result, err := executor.Execute(context.Background(), Statement{SQL: "SELECT 1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if polls != 2 {
		t.Errorf("polled %d times, want 2", polls)
	}
	if len(result.Rows) != 1 {
		t.Errorf("got %d rows, want 1", len(result.Rows))
	}
}

func TestExecuteCollectsChunks(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{
				"statement_id": "st-3",
				"status": {"state": "SUCCEEDED"},
				"manifest": {"schema": {"columns": [{"name": "n"}]}},
				"result": {"data_array": [["1"]], "next_chunk_internal_link": "/api/2.0/sql/statements/st-3/result/chunks/1"}
			}`)
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/chunks/1") {
			t.Errorf("unexpected poll path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data_array": [["2"]]}`)
	})

	executor := newTestExecutor(t, handler)
	result, err := executor.Execute(context.Background(), Statement{SQL: "SELECT n FROM t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(result.Rows))
	}
	if result.Rows[1][0].S != "2" {
		t.Errorf("Rows[1][0] = %+v", result.Rows[1][0])
	}
}

func TestExecuteFailedStatement(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"statement_id": "st-4",
			"status": {"state": "FAILED", "error": {"error_code": "TABLE_OR_VIEW_NOT_FOUND", "message": "no such table"}}
		}`)
	})

	executor := newTestExecutor(t, handler)
	_, err := executor.Execute(context.Background(), Statement{SQL: "SELECT 1 FROM missing"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "TABLE_OR_VIEW_NOT_FOUND") {
		t.Errorf("error %q does not carry the error code", err)
	}
}

func TestTableExists(t *testing.T) {
	var lastSQL string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Statement string `json:"statement"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		lastSQL = body.Statement

		if strings.Contains(body.Statement, "missing") {
			fmt.Fprint(w, `{"statement_id": "st-5", "status": {"state": "FAILED", "error": {"error_code": "TABLE_OR_VIEW_NOT_FOUND", "message": "x"}}}`)
			return
		}
		fmt.Fprint(w, `{"statement_id": "st-5", "status": {"state": "SUCCEEDED"}}`)
	})

	executor := newTestExecutor(t, handler)

	ok, err := executor.TableExists(context.Background(), "wh-1", "system.access.audit")
	if err != nil || !ok {
		t.Errorf("TableExists = %v, %v; want true", ok, err)
	}
	if !strings.Contains(lastSQL, "WHERE 1 = 0") {
		t.Errorf("probe SQL = %q, want a zero-row probe", lastSQL)
	}

	ok, err = executor.TableExists(context.Background(), "wh-1", "billing.missing")
	if err != nil || ok {
		t.Errorf("TableExists = %v, %v; want false without error", ok, err)
	}

	if _, err := executor.TableExists(context.Background(), "wh-1", "bad table"); err == nil {
		t.Error("expected error for an invalid identifier")
	}
}
