package observe

import (
	"context"
	"fmt"
	"time"

	"github.com/lakewatch/lakewatch/pkg/statement"
)

// Query operation defaults.
const (
	DefaultQueryLimit = 20

	// maxQueryTextLen bounds the statement text carried per record.
	maxQueryTextLen = 500
)

// Queries answers SQL warehouse query-history questions.
type Queries struct {
	deps Deps
}

// NewQueries creates the queries domain service.
func NewQueries(deps Deps) *Queries {
	return &Queries{deps: deps}
}

// SlowestQueriesParams parameterizes TopSlowestQueries.
type SlowestQueriesParams struct {
	Lookback time.Duration
	Limit    int
}

// TopSlowestQueries returns the slowest queries in the window, slowest
// first.
func (q *Queries) TopSlowestQueries(ctx context.Context, params SlowestQueriesParams) ([]SlowQuery, error) {
	if params.Lookback == 0 {
		params.Lookback = DefaultLookback
	}
	if params.Limit == 0 {
		params.Limit = DefaultQueryLimit
	}
	if params.Limit < 0 {
		return nil, Validationf("limit must be positive, got %d", params.Limit)
	}

	window, err := NewWindow(q.deps.now(), params.Lookback)
	if err != nil {
		return nil, err
	}

	var fast func(context.Context) ([]SlowQuery, error)
	if q.deps.fastPathReady() && q.deps.Tables.QueryHistory != "" {
		fast = func(ctx context.Context) ([]SlowQuery, error) {
			return q.slowestFast(ctx, window, params.Limit)
		}
	}

	records, err := runWithFallback(ctx, q.deps, "queries", "top_slowest_queries", fast,
		func(ctx context.Context) ([]SlowQuery, error) {
			return q.slowestSlow(ctx, window)
		})
	if err != nil {
		return nil, err
	}

	return classifyAndRank(records, nil,
		func(a, b SlowQuery) bool {
			if a.DurationSeconds != b.DurationSeconds {
				return a.DurationSeconds > b.DurationSeconds
			}
			return a.QueryID < b.QueryID
		},
		params.Limit), nil
}

func (q *Queries) slowestFast(ctx context.Context, window Window, limit int) ([]SlowQuery, error) {
	sql := fmt.Sprintf(`
SELECT statement_id, executed_by, warehouse_id, execution_status, start_time,
       total_duration_ms / 1000.0 AS duration_seconds,
       statement_text
FROM %s
WHERE start_time >= :window_start
ORDER BY duration_seconds DESC, statement_id ASC
LIMIT :row_limit`, q.deps.Tables.QueryHistory)

	result, err := q.deps.Executor.Execute(ctx, statement.Statement{
		SQL: sql,
		Params: []statement.Param{
			statement.Timestamp("window_start", window.Start),
			statement.Int64("row_limit", int64(limit)),
		},
		WarehouseID: q.deps.WarehouseID,
	})
	if err != nil {
		return nil, err
	}

	records := make([]SlowQuery, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("query history row has %d columns, want 7", len(row))
		}
		start, err := row[4].Time()
		if err != nil {
			return nil, err
		}
		duration, err := row[5].Float64()
		if err != nil {
			return nil, err
		}
		records = append(records, SlowQuery{
			QueryID:         row[0].S,
			UserName:        row[1].S,
			WarehouseID:     row[2].S,
			Status:          row[3].S,
			StartTime:       start,
			DurationSeconds: duration,
			QueryText:       truncateText(row[6].S, maxQueryTextLen),
		})
	}
	return records, nil
}

func (q *Queries) slowestSlow(ctx context.Context, window Window) ([]SlowQuery, error) {
	queries, err := q.deps.Platform.ListQueries(ctx, window.Start, "")
	if err != nil {
		return nil, err
	}

	var records []SlowQuery
	for _, info := range queries {
		if info.StartTimeMS == 0 {
			continue
		}
		records = append(records, SlowQuery{
			QueryID:         info.QueryID,
			UserName:        info.UserName,
			WarehouseID:     info.WarehouseID,
			Status:          info.Status.Canonical(),
			StartTime:       time.UnixMilli(info.StartTimeMS),
			DurationSeconds: float64(info.DurationMS) / 1000.0,
			QueryText:       truncateText(info.QueryText, maxQueryTextLen),
		})
	}
	return records, nil
}

// UserQuerySummaryParams parameterizes GetUserQuerySummary.
type UserQuerySummaryParams struct {
	UserName string
	Lookback time.Duration
}

// GetUserQuerySummary aggregates one user's query activity over the
// window. A user with no queries yields a zero-count summary, not an
// error.
func (q *Queries) GetUserQuerySummary(ctx context.Context, params UserQuerySummaryParams) (*UserQuerySummary, error) {
	if params.UserName == "" {
		return nil, Validationf("user_name cannot be empty")
	}
	if params.Lookback == 0 {
		params.Lookback = DefaultLookback
	}

	window, err := NewWindow(q.deps.now(), params.Lookback)
	if err != nil {
		return nil, err
	}

	start := q.deps.now()
	queries, err := q.deps.Platform.ListQueries(ctx, window.Start, params.UserName)
	if err != nil {
		q.deps.Metrics.RecordQuery("queries", "slow", "error", q.deps.now().Sub(start))
		return nil, &APIError{Op: "user_query_summary", Err: err}
	}
	q.deps.Metrics.RecordQuery("queries", "slow", "ok", q.deps.now().Sub(start))

	summary := &UserQuerySummary{UserName: params.UserName}
	warehouses := map[string]bool{}
	for _, info := range queries {
		duration := float64(info.DurationMS) / 1000.0
		summary.TotalQueries++
		summary.TotalDurationSeconds += duration
		if summary.TotalQueries == 1 || duration < summary.MinDurationSeconds {
			summary.MinDurationSeconds = duration
		}
		if duration > summary.MaxDurationSeconds {
			summary.MaxDurationSeconds = duration
		}
		switch info.Status.Canonical() {
		case "FINISHED", "SUCCEEDED":
			summary.Succeeded++
		case "FAILED", "CANCELED":
			summary.Failed++
		}
		if info.WarehouseID != "" {
			warehouses[info.WarehouseID] = true
		}
	}
	if summary.TotalQueries > 0 {
		summary.AvgDurationSeconds = summary.TotalDurationSeconds / float64(summary.TotalQueries)
		summary.FailureRate = float64(summary.Failed) / float64(summary.TotalQueries)
	}
	summary.DistinctWarehouses = len(warehouses)
	return summary, nil
}

// truncateText bounds free-text fields carried in records.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
