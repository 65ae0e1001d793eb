package observe

import (
	"context"
	"sync"
	"time"

	"github.com/lakewatch/lakewatch/pkg/platform"
)

// Cluster operation defaults.
const (
	DefaultClusterMinUptime = 8 * time.Hour
	DefaultIdleThreshold    = 2 * time.Hour
)

// activeClusterStates are the states that count as "up" for uptime.
var activeClusterStates = []string{"RUNNING", "RESIZING", "RESTARTING"}

// Clusters answers compute-cluster questions. Cluster state exists
// only in the live API, so both operations enumerate directly.
type Clusters struct {
	deps Deps
}

// NewClusters creates the clusters domain service.
func NewClusters(deps Deps) *Clusters {
	return &Clusters{deps: deps}
}

// LongRunningClustersParams parameterizes ListLongRunningClusters.
type LongRunningClustersParams struct {
	MinUptime time.Duration
	Limit     int
}

// ListLongRunningClusters returns active clusters whose uptime met the
// threshold, longest up first.
func (c *Clusters) ListLongRunningClusters(ctx context.Context, params LongRunningClustersParams) ([]LongRunningCluster, error) {
	if params.MinUptime == 0 {
		params.MinUptime = DefaultClusterMinUptime
	}
	if params.MinUptime < 0 {
		return nil, Validationf("min_uptime must be positive, got %s", params.MinUptime)
	}
	if params.Limit == 0 {
		params.Limit = DefaultListLimit
	}
	if params.Limit < 0 {
		return nil, Validationf("limit must be positive, got %d", params.Limit)
	}

	now := c.deps.now()

	records, err := runWithFallback(ctx, c.deps, "clusters", "list_long_running_clusters", nil,
		func(ctx context.Context) ([]LongRunningCluster, error) {
			details, err := c.activeDetails(ctx, activeClusterStates)
			if err != nil {
				return nil, err
			}

			var records []LongRunningCluster
			for _, detail := range details {
				if detail.StartTime == 0 {
					continue
				}
				start := time.UnixMilli(detail.StartTime)
				records = append(records, LongRunningCluster{
					ClusterID:     detail.ClusterID,
					ClusterName:   detail.ClusterName,
					State:         detail.State.Canonical(),
					StartTime:     start,
					UptimeSeconds: now.Sub(start).Seconds(),
					Creator:       detail.CreatorUserName,
				})
			}
			return records, nil
		})
	if err != nil {
		return nil, err
	}

	minSeconds := params.MinUptime.Seconds()
	return classifyAndRank(records,
		func(r LongRunningCluster) bool { return r.UptimeSeconds >= minSeconds },
		func(a, b LongRunningCluster) bool {
			if a.UptimeSeconds != b.UptimeSeconds {
				return a.UptimeSeconds > b.UptimeSeconds
			}
			return a.ClusterID < b.ClusterID
		},
		params.Limit), nil
}

// IdleClustersParams parameterizes ListIdleClusters.
type IdleClustersParams struct {
	IdleThreshold time.Duration
	Limit         int
}

// ListIdleClusters returns running clusters with no activity for at
// least the threshold, most idle first. Clusters that never reported
// activity measure idleness from their start time.
func (c *Clusters) ListIdleClusters(ctx context.Context, params IdleClustersParams) ([]IdleCluster, error) {
	if params.IdleThreshold == 0 {
		params.IdleThreshold = DefaultIdleThreshold
	}
	if params.IdleThreshold < 0 {
		return nil, Validationf("idle_threshold must be positive, got %s", params.IdleThreshold)
	}
	if params.Limit == 0 {
		params.Limit = DefaultListLimit
	}
	if params.Limit < 0 {
		return nil, Validationf("limit must be positive, got %d", params.Limit)
	}

	now := c.deps.now()

	records, err := runWithFallback(ctx, c.deps, "clusters", "list_idle_clusters", nil,
		func(ctx context.Context) ([]IdleCluster, error) {
			details, err := c.activeDetails(ctx, []string{"RUNNING"})
			if err != nil {
				return nil, err
			}

			var records []IdleCluster
			for _, detail := range details {
				lastActivity := detail.LastActivityTime
				if lastActivity == 0 {
					lastActivity = detail.StartTime
				}
				if lastActivity == 0 {
					continue
				}
				last := time.UnixMilli(lastActivity)
				records = append(records, IdleCluster{
					ClusterID:              detail.ClusterID,
					ClusterName:            detail.ClusterName,
					LastActivity:           last,
					IdleSeconds:            now.Sub(last).Seconds(),
					AutoTerminationMinutes: detail.AutoTerminationMinutes,
					Creator:                detail.CreatorUserName,
				})
			}
			return records, nil
		})
	if err != nil {
		return nil, err
	}

	minSeconds := params.IdleThreshold.Seconds()
	return classifyAndRank(records,
		func(r IdleCluster) bool { return r.IdleSeconds >= minSeconds },
		func(a, b IdleCluster) bool {
			if a.IdleSeconds != b.IdleSeconds {
				return a.IdleSeconds > b.IdleSeconds
			}
			return a.ClusterID < b.ClusterID
		},
		params.Limit), nil
}

// activeDetails lists clusters, keeps those in the given states, and
// fans out detail fetches with bounded concurrency. A cluster whose
// detail fetch fails is logged and skipped.
func (c *Clusters) activeDetails(ctx context.Context, states []string) ([]*platform.ClusterDetail, error) {
	summaries, err := c.deps.Platform.ListClusters(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []platform.ClusterSummary
	for _, summary := range summaries {
		if summary.State.Is(states...) {
			candidates = append(candidates, summary)
		}
	}

	var mu sync.Mutex
	var details []*platform.ClusterDetail
	err = forEachConcurrent(ctx, c.deps.fanout(), candidates,
		func(ctx context.Context, summary platform.ClusterSummary) error {
			detail, err := c.deps.Platform.GetCluster(ctx, summary.ClusterID)
			if err != nil {
				return err
			}
			mu.Lock()
			details = append(details, detail)
			mu.Unlock()
			return nil
		},
		func(summary platform.ClusterSummary, err error) {
			c.deps.log().Warn("failed to fetch cluster detail, skipping",
				"cluster_id", summary.ClusterID,
				"error", err,
			)
		})
	if err != nil {
		return nil, err
	}
	return details, nil
}
