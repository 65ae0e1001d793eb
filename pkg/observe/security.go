package observe

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/lakewatch/lakewatch/pkg/platform"
)

// Security answers permission questions about single resources.
type Security struct {
	deps Deps
}

// NewSecurity creates the security domain service.
func NewSecurity(deps Deps) *Security {
	return &Security{deps: deps}
}

// WhoCanManageJob returns the principals holding a managing permission
// on a job, sorted by principal.
func (s *Security) WhoCanManageJob(ctx context.Context, jobID int64) ([]PermissionEntry, error) {
	if jobID <= 0 {
		return nil, Validationf("job_id must be positive, got %d", jobID)
	}
	return s.permissions(ctx, "jobs", strconv.FormatInt(jobID, 10), "job",
		[]string{"CAN_MANAGE", "IS_OWNER"})
}

// WhoCanUseCluster returns the principals allowed to attach to,
// restart or manage a cluster, sorted by principal.
func (s *Security) WhoCanUseCluster(ctx context.Context, clusterID string) ([]PermissionEntry, error) {
	if clusterID == "" {
		return nil, Validationf("cluster_id cannot be empty")
	}
	return s.permissions(ctx, "clusters", clusterID, "cluster",
		[]string{"CAN_ATTACH_TO", "CAN_RESTART", "CAN_MANAGE"})
}

// permissions fetches one object's ACL and keeps entries holding any of
// the wanted levels. A missing object is a ResourceNotFoundError; any
// other failure is an APIError.
func (s *Security) permissions(ctx context.Context, objectType, objectID, resource string, levels []string) ([]PermissionEntry, error) {
	start := s.deps.now()
	perms, err := s.deps.Platform.GetPermissions(ctx, objectType, objectID)
	if err != nil {
		s.deps.Metrics.RecordQuery("security", "slow", "error", s.deps.now().Sub(start))
		if errors.Is(err, platform.ErrNotFound) {
			return nil, &ResourceNotFoundError{Resource: resource, ID: objectID}
		}
		return nil, &APIError{Op: "who_can_" + resource, Err: err}
	}
	s.deps.Metrics.RecordQuery("security", "slow", "ok", s.deps.now().Sub(start))

	var entries []PermissionEntry
	for _, acl := range perms.AccessControlList {
		principal := acl.Principal()
		if principal == "" {
			continue
		}
		for _, perm := range acl.AllPermissions {
			if !perm.PermissionLevel.Is(levels...) {
				continue
			}
			entries = append(entries, PermissionEntry{
				Principal:       principal,
				PermissionLevel: perm.PermissionLevel.Canonical(),
				Inherited:       perm.Inherited,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Principal != entries[j].Principal {
			return entries[i].Principal < entries[j].Principal
		}
		return entries[i].PermissionLevel < entries[j].PermissionLevel
	})
	return entries, nil
}
