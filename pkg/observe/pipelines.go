package observe

import (
	"context"
	"sync"
	"time"

	"github.com/lakewatch/lakewatch/pkg/platform"
)

// Pipeline operation defaults.
const (
	DefaultMaxLag        = 10 * time.Minute
	DefaultPipelineLimit = 50
)

// Pipelines answers streaming-pipeline questions. Pipeline state
// exists only in the live API, so both operations enumerate directly.
type Pipelines struct {
	deps Deps
}

// NewPipelines creates the pipelines domain service.
func NewPipelines(deps Deps) *Pipelines {
	return &Pipelines{deps: deps}
}

// LaggingPipelinesParams parameterizes ListLaggingPipelines.
type LaggingPipelinesParams struct {
	MaxLag time.Duration
	Limit  int
}

// ListLaggingPipelines returns continuous pipelines whose most recent
// update is older than the lag threshold, most lagged first. Batch
// pipelines have no lag and are never reported.
func (p *Pipelines) ListLaggingPipelines(ctx context.Context, params LaggingPipelinesParams) ([]LaggingPipeline, error) {
	if params.MaxLag == 0 {
		params.MaxLag = DefaultMaxLag
	}
	if params.MaxLag < 0 {
		return nil, Validationf("max_lag must be positive, got %s", params.MaxLag)
	}
	if params.Limit == 0 {
		params.Limit = DefaultPipelineLimit
	}
	if params.Limit < 0 {
		return nil, Validationf("limit must be positive, got %d", params.Limit)
	}

	now := p.deps.now()

	records, err := runWithFallback(ctx, p.deps, "pipelines", "list_lagging_pipelines", nil,
		func(ctx context.Context) ([]LaggingPipeline, error) {
			details, err := p.details(ctx)
			if err != nil {
				return nil, err
			}

			var records []LaggingPipeline
			for _, detail := range details {
				if !detail.Spec.Continuous {
					continue
				}

				var lastUpdate *time.Time
				lag := now.Sub(time.Time{})
				if latest := latestUpdate(detail.LatestUpdates); latest != nil && latest.CreationTime > 0 {
					t := time.UnixMilli(latest.CreationTime)
					lastUpdate = &t
					lag = now.Sub(t)
				}

				records = append(records, LaggingPipeline{
					PipelineID:     detail.PipelineID,
					Name:           detail.Name,
					State:          detail.State.Canonical(),
					LastUpdateTime: lastUpdate,
					LagSeconds:     lag.Seconds(),
				})
			}
			return records, nil
		})
	if err != nil {
		return nil, err
	}

	maxLagSeconds := params.MaxLag.Seconds()
	return classifyAndRank(records,
		func(r LaggingPipeline) bool { return r.LagSeconds >= maxLagSeconds },
		func(a, b LaggingPipeline) bool {
			if a.LagSeconds != b.LagSeconds {
				return a.LagSeconds > b.LagSeconds
			}
			return a.PipelineID < b.PipelineID
		},
		params.Limit), nil
}

// FailedPipelinesParams parameterizes ListFailedPipelines.
type FailedPipelinesParams struct {
	Lookback time.Duration
	Limit    int
}

// ListFailedPipelines returns pipelines whose most recent update within
// the window failed, newest failure first.
func (p *Pipelines) ListFailedPipelines(ctx context.Context, params FailedPipelinesParams) ([]FailedPipeline, error) {
	if params.Lookback == 0 {
		params.Lookback = DefaultLookback
	}
	if params.Limit == 0 {
		params.Limit = DefaultPipelineLimit
	}
	if params.Limit < 0 {
		return nil, Validationf("limit must be positive, got %d", params.Limit)
	}

	window, err := NewWindow(p.deps.now(), params.Lookback)
	if err != nil {
		return nil, err
	}

	records, err := runWithFallback(ctx, p.deps, "pipelines", "list_failed_pipelines", nil,
		func(ctx context.Context) ([]FailedPipeline, error) {
			details, err := p.details(ctx)
			if err != nil {
				return nil, err
			}

			var records []FailedPipeline
			for _, detail := range details {
				update := latestFailedUpdate(detail.LatestUpdates, window)
				if update == nil {
					continue
				}
				cause := update.Cause
				if cause == "" {
					cause = detail.Cause
				}
				records = append(records, FailedPipeline{
					PipelineID: detail.PipelineID,
					Name:       detail.Name,
					UpdateID:   update.UpdateID,
					FailedAt:   time.UnixMilli(update.CreationTime),
					Cause:      cause,
				})
			}
			return records, nil
		})
	if err != nil {
		return nil, err
	}

	return classifyAndRank(records, nil,
		func(a, b FailedPipeline) bool {
			if !a.FailedAt.Equal(b.FailedAt) {
				return a.FailedAt.After(b.FailedAt)
			}
			return a.PipelineID < b.PipelineID
		},
		params.Limit), nil
}

// details lists pipelines and fans out detail fetches with bounded
// concurrency. A pipeline whose detail fetch fails is logged and
// skipped.
func (p *Pipelines) details(ctx context.Context) ([]*platform.PipelineDetail, error) {
	summaries, err := p.deps.Platform.ListPipelines(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var details []*platform.PipelineDetail
	err = forEachConcurrent(ctx, p.deps.fanout(), summaries,
		func(ctx context.Context, summary platform.PipelineSummary) error {
			detail, err := p.deps.Platform.GetPipeline(ctx, summary.PipelineID)
			if err != nil {
				return err
			}
			mu.Lock()
			details = append(details, detail)
			mu.Unlock()
			return nil
		},
		func(summary platform.PipelineSummary, err error) {
			p.deps.log().Warn("failed to fetch pipeline detail, skipping",
				"pipeline_id", summary.PipelineID,
				"error", err,
			)
		})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// latestUpdate returns the newest update by creation time.
func latestUpdate(updates []platform.PipelineUpdate) *platform.PipelineUpdate {
	var latest *platform.PipelineUpdate
	for i := range updates {
		if latest == nil || updates[i].CreationTime > latest.CreationTime {
			latest = &updates[i]
		}
	}
	return latest
}

// latestFailedUpdate returns the newest failed update inside the
// window, or nil when the pipeline's most recent update succeeded.
func latestFailedUpdate(updates []platform.PipelineUpdate, window Window) *platform.PipelineUpdate {
	latest := latestUpdate(updates)
	if latest == nil || !latest.State.Is("FAILED") {
		return nil
	}
	if latest.CreationTime == 0 || !window.Contains(time.UnixMilli(latest.CreationTime)) {
		return nil
	}
	return latest
}
