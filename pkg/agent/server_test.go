package agent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lakewatch/lakewatch/internal/platformtest"
	"github.com/lakewatch/lakewatch/pkg/observe"
	"github.com/lakewatch/lakewatch/pkg/platform"
)

var agentNow = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func testServer(client *platformtest.FakeClient) *Server {
	deps := observe.Deps{
		Platform: client,
		Clock:    func() time.Time { return agentNow },
	}
	return NewServer(Services{
		Jobs:      observe.NewJobs(deps),
		Clusters:  observe.NewClusters(deps),
		Queries:   observe.NewQueries(deps),
		Pipelines: observe.NewPipelines(deps),
		Security:  observe.NewSecurity(deps),
		Audit:     observe.NewAudit(deps),
	}, "test")
}

// callTool connects an in-memory client to the server and calls one
// tool.
func callTool(t *testing.T, srv *Server, name string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()
	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", name, err)
	}
	return result
}

func decodeOutput(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()

	if result.StructuredContent == nil {
		t.Fatal("no structured content in result")
	}
	data, err := json.Marshal(result.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal tool output: %v", err)
	}
}

func resultText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListLongRunningJobsTool(t *testing.T) {
	client := platformtest.NewFakeClient()
	client.Runs = []platform.Run{
		{
			JobID:     7,
			RunID:     700,
			RunName:   "nightly-etl",
			StartTime: agentNow.Add(-6 * time.Hour).UnixMilli(),
			State: platform.RunState{
				LifeCycleState: platform.Field("RUNNING"),
			},
		},
	}

	result := callTool(t, testServer(client), "list_long_running_jobs", map[string]any{
		"min_duration_hours": 4,
	})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", resultText(result))
	}

	var out longRunningJobsOutput
	decodeOutput(t, result, &out)

	if out.Count != 1 {
		t.Fatalf("Count = %d, want 1", out.Count)
	}
	if out.Runs[0].JobID != 7 || out.Runs[0].DurationSeconds != 6*3600 {
		t.Errorf("run = %+v", out.Runs[0])
	}
	if out.Runs[0].EndTime != "" {
		t.Errorf("EndTime = %q, want empty for an in-flight run", out.Runs[0].EndTime)
	}
}

func TestListLongRunningJobsToolValidation(t *testing.T) {
	result := callTool(t, testServer(platformtest.NewFakeClient()), "list_long_running_jobs", map[string]any{
		"min_duration_hours": -1,
	})
	if !result.IsError {
		t.Fatal("expected error result for negative threshold")
	}
}

func TestUserQuerySummaryToolRequiresUser(t *testing.T) {
	result := callTool(t, testServer(platformtest.NewFakeClient()), "user_query_summary", map[string]any{
		"user_name": "",
	})
	if !result.IsError {
		t.Fatal("expected error result for missing user_name")
	}
}

func TestWhoCanUseClusterTool(t *testing.T) {
	client := platformtest.NewFakeClient()
	client.Permissions["clusters/c-1"] = &platform.ObjectPermissions{
		ObjectID: "c-1",
		AccessControlList: []platform.AccessControl{
			{
				UserName: "bob@acme.com",
				AllPermissions: []platform.Permission{
					{PermissionLevel: platform.Field("CAN_ATTACH_TO")},
				},
			},
		},
	}

	result := callTool(t, testServer(client), "who_can_use_cluster", map[string]any{
		"cluster_id": "c-1",
	})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", resultText(result))
	}

	var out permissionsOutput
	decodeOutput(t, result, &out)
	if out.Count != 1 || out.Entries[0].Principal != "bob@acme.com" {
		t.Errorf("entries = %+v", out.Entries)
	}
}

func TestWhoCanManageJobToolNotFound(t *testing.T) {
	// No permissions registered: the lookup is a single-resource miss.
	result := callTool(t, testServer(platformtest.NewFakeClient()), "who_can_manage_job", map[string]any{
		"job_id": 42,
	})
	if !result.IsError {
		t.Fatal("expected error result for unknown job")
	}
}

func TestChargebackToolsWithoutService(t *testing.T) {
	srv := testServer(platformtest.NewFakeClient())

	for _, tool := range []string{"top_cost_centers", "cost_by_dimension", "budget_status"} {
		args := map[string]any{}
		if tool != "top_cost_centers" {
			args["dimension"] = "tag:team"
		}
		result := callTool(t, srv, tool, args)
		if !result.IsError {
			t.Errorf("%s: expected error result without a chargeback service", tool)
		}
	}
}

func TestFailedLoginsToolDegradesWithoutAuditTable(t *testing.T) {
	result := callTool(t, testServer(platformtest.NewFakeClient()), "failed_logins", map[string]any{})
	if result.IsError {
		t.Fatalf("expected empty success, got error: %s", resultText(result))
	}

	var out auditOutput
	decodeOutput(t, result, &out)
	if out.Count != 0 {
		t.Errorf("Count = %d, want 0", out.Count)
	}
}
