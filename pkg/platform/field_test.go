package platform

import (
	"encoding/json"
	"testing"
)

func TestFieldValueUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare string", `"RUNNING"`, "RUNNING"},
		{"enum object", `{"value":"TERMINATED"}`, "TERMINATED"},
		{"number", `42`, "42"},
		{"null", `null`, ""},
		{"object without value", `{"kind":"x"}`, `{"kind":"x"}`},
		{"array falls back to raw", `[1,2]`, "[1,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FieldValue
			if err := json.Unmarshal([]byte(tt.raw), &f); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.String() != tt.want {
				t.Errorf("String() = %q, want %q", f.String(), tt.want)
			}
		})
	}
}

func TestFieldValueCanonical(t *testing.T) {
	var f FieldValue
	if err := json.Unmarshal([]byte(`"running"`), &f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Canonical() != "RUNNING" {
		t.Errorf("Canonical() = %q, want RUNNING", f.Canonical())
	}
	if !f.Is("RUNNING", "RESIZING") {
		t.Error("Is should match case-insensitively")
	}
	if f.Is("TERMINATED") {
		t.Error("Is matched a state the value does not hold")
	}
}

func TestFieldValueInsideStruct(t *testing.T) {
	// The two shapes the runs API serves for the same field.
	payloads := []string{
		`{"state":{"life_cycle_state":"TERMINATED","result_state":"SUCCESS"}}`,
		`{"state":{"life_cycle_state":{"value":"TERMINATED"},"result_state":{"value":"SUCCESS"}}}`,
	}

	for _, payload := range payloads {
		var run struct {
			State RunState `json:"state"`
		}
		if err := json.Unmarshal([]byte(payload), &run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.State.LifeCycleState.Canonical() != "TERMINATED" {
			t.Errorf("LifeCycleState = %q", run.State.LifeCycleState)
		}
		if run.State.ResultState.Canonical() != "SUCCESS" {
			t.Errorf("ResultState = %q", run.State.ResultState)
		}
	}
}

func TestAccessControlPrincipal(t *testing.T) {
	tests := []struct {
		name string
		acl  AccessControl
		want string
	}{
		{"user", AccessControl{UserName: "alice@acme.com"}, "alice@acme.com"},
		{"group", AccessControl{GroupName: "admins"}, "admins"},
		{"service principal", AccessControl{ServicePrincipalName: "sp-etl"}, "sp-etl"},
		{"user wins over group", AccessControl{UserName: "alice@acme.com", GroupName: "admins"}, "alice@acme.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.acl.Principal(); got != tt.want {
				t.Errorf("Principal() = %q, want %q", got, tt.want)
			}
		})
	}
}
