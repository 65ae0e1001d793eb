package chargeback

import (
	"regexp"
	"strings"

	"github.com/lakewatch/lakewatch/pkg/observe"
)

// Dimension kinds. Only these may group usage; dimension text never
// reaches SQL unvalidated.
const (
	KindWorkspace = "workspace"
	KindCluster   = "cluster"
	KindJob       = "job"
	KindWarehouse = "warehouse"
	KindTag       = "tag"
)

// dimensionColumns maps each kind to its fixed column expression in
// the billing usage table.
var dimensionColumns = map[string]string{
	KindWorkspace: "workspace_id",
	KindCluster:   "usage_metadata.cluster_id",
	KindJob:       "usage_metadata.job_id",
	KindWarehouse: "usage_metadata.warehouse_id",
}

// bareTagAliases are dimension names accepted as shorthand for their
// tag form.
var bareTagAliases = map[string]string{
	"project": "tag:project",
	"team":    "tag:team",
}

var tagKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// Dimension is a validated grouping dimension.
type Dimension struct {
	Kind   string
	TagKey string
}

// ParseDimension validates a user-supplied dimension name. Supported
// forms are the four identifier kinds and "tag:<key>"; "project" and
// "team" are shorthand for their tag form.
func ParseDimension(s string) (Dimension, error) {
	if alias, ok := bareTagAliases[s]; ok {
		s = alias
	}

	if key, ok := strings.CutPrefix(s, "tag:"); ok {
		if key == "" {
			return Dimension{}, observe.Validationf("tag dimension must specify a key, e.g. tag:team")
		}
		if !tagKeyPattern.MatchString(key) {
			return Dimension{}, observe.Validationf("invalid tag key %q", key)
		}
		return Dimension{Kind: KindTag, TagKey: key}, nil
	}

	if _, ok := dimensionColumns[s]; !ok {
		return Dimension{}, observe.Validationf("unsupported dimension %q", s)
	}
	return Dimension{Kind: s}, nil
}

// String renders the canonical dimension name.
func (d Dimension) String() string {
	if d.Kind == KindTag {
		return "tag:" + d.TagKey
	}
	return d.Kind
}

// columnExpr returns the SQL expression that extracts this dimension
// from a usage row. The expression is assembled only from the fixed
// allow-list and a validated tag key.
func (d Dimension) columnExpr() string {
	if d.Kind == KindTag {
		return "custom_tags['" + d.TagKey + "']"
	}
	return dimensionColumns[d.Kind]
}

// valueOf extracts this dimension's value from a raw usage record.
// The second return is false when the record has no value for the
// dimension.
func (d Dimension) valueOf(r RawUsage) (string, bool) {
	var v string
	switch d.Kind {
	case KindWorkspace:
		v = r.WorkspaceID
	case KindCluster:
		v = r.ClusterID
	case KindJob:
		v = r.JobID
	case KindWarehouse:
		v = r.WarehouseID
	case KindTag:
		v = r.Tags[d.TagKey]
	}
	return v, v != ""
}
