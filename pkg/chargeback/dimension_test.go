package chargeback

import (
	"testing"

	"github.com/lakewatch/lakewatch/pkg/observe"
)

func TestParseDimension(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "workspace", input: "workspace", want: "workspace"},
		{name: "cluster", input: "cluster", want: "cluster"},
		{name: "job", input: "job", want: "job"},
		{name: "warehouse", input: "warehouse", want: "warehouse"},
		{name: "tag", input: "tag:cost-center", want: "tag:cost-center"},
		{name: "project alias", input: "project", want: "tag:project"},
		{name: "team alias", input: "team", want: "tag:team"},
		{name: "unknown", input: "region", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "tag without key", input: "tag:", wantErr: true},
		{name: "tag key with quote", input: "tag:k'ey", wantErr: true},
		{name: "tag key with space", input: "tag:a b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dim, err := ParseDimension(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !observe.IsValidation(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dim.String() != tt.want {
				t.Errorf("String() = %q, want %q", dim.String(), tt.want)
			}
		})
	}
}

func TestDimensionColumnExpr(t *testing.T) {
	dim, err := ParseDimension("tag:env")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dim.columnExpr(); got != "custom_tags['env']" {
		t.Errorf("columnExpr() = %q", got)
	}

	dim, err = ParseDimension("cluster")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dim.columnExpr(); got != "usage_metadata.cluster_id" {
		t.Errorf("columnExpr() = %q", got)
	}
}
