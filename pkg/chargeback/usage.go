package chargeback

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lakewatch/lakewatch/pkg/observe"
	"github.com/lakewatch/lakewatch/pkg/platform"
	"github.com/lakewatch/lakewatch/pkg/statement"
	"github.com/lakewatch/lakewatch/pkg/telemetry/logging"
	"github.com/lakewatch/lakewatch/pkg/telemetry/metrics"
)

// Operation defaults.
const (
	DefaultCostLookbackDays      = 7
	DefaultDimensionLookbackDays = 30
	DefaultPeriodDays            = 30
	DefaultTopLimit              = 20
	DefaultDimensionLimit        = 100

	// budgetActualsCap bounds the actuals scan during budget
	// evaluation, which has no caller-visible limit.
	budgetActualsCap = 10000
)

// warehouseSizeUnits estimates consumption units per running hour by
// warehouse T-shirt size.
var warehouseSizeUnits = map[string]float64{
	"2X-Small": 1,
	"X-Small":  2,
	"Small":    4,
	"Medium":   8,
	"Large":    16,
	"X-Large":  32,
	"2X-Large": 64,
}

// clusterRunStates are cluster event types that open a running
// interval; clusterStopStates close one.
var (
	clusterRunStates  = []string{"STARTING", "RUNNING", "RESTARTING", "RESIZING"}
	clusterStopStates = []string{"TERMINATING", "TERMINATED"}
)

// ServiceConfig wires the usage service.
type ServiceConfig struct {
	// Platform is the live control-plane client for estimation.
	Platform platform.Client

	// Executor runs billing-table statements. Nil disables the fast
	// path.
	Executor statement.Executor

	// WarehouseID is the warehouse billing statements run on.
	WarehouseID string

	// UsageTable is the billing usage table. Empty disables the fast
	// path.
	UsageTable string

	// BudgetTable is the provisioned budgets table. Empty means budget
	// allocations come from Store.
	BudgetTable string

	// Store supplies local budget allocations when no budget table is
	// provisioned.
	Store *Store

	// Logger receives service logs.
	Logger *logging.Logger

	// Metrics receives service metrics.
	Metrics *metrics.Collector

	// Clock supplies "now". Nil means time.Now.
	Clock func() time.Time

	// MaxConcurrentFetches bounds the estimation fan-out.
	MaxConcurrentFetches int
}

// Service answers chargeback questions: top cost centers, cost by
// dimension, and budget standing.
type Service struct {
	cfg ServiceConfig
}

// NewService creates the chargeback service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{cfg: cfg}
}

func (s *Service) now() time.Time {
	if s.cfg.Clock != nil {
		return s.cfg.Clock()
	}
	return time.Now()
}

func (s *Service) log() *logging.Logger {
	if s.cfg.Logger != nil {
		return s.cfg.Logger
	}
	return logging.Default()
}

func (s *Service) fanout() int {
	if s.cfg.MaxConcurrentFetches > 0 {
		return s.cfg.MaxConcurrentFetches
	}
	return 8
}

func (s *Service) fastPathReady() bool {
	return s.cfg.Executor != nil && s.cfg.WarehouseID != "" && s.cfg.UsageTable != ""
}

// run coordinates the fast and slow paths for one chargeback
// operation, with the same single-hop fallback the query engine uses.
func (s *Service) run(ctx context.Context, op string, fast, slow func(context.Context) ([]CostCenter, error)) ([]CostCenter, error) {
	start := s.now()

	if fast != nil {
		centers, err := fast(ctx)
		if err == nil {
			s.cfg.Metrics.RecordQuery("chargeback", "fast", "ok", s.now().Sub(start))
			return centers, nil
		}
		if ctx.Err() != nil || slow == nil {
			s.cfg.Metrics.RecordQuery("chargeback", "fast", "error", s.now().Sub(start))
			return nil, &observe.APIError{Op: op, Err: err}
		}
		s.log().Warn("billing query failed, falling back to estimation",
			"operation", op,
			"error", err,
		)
		s.cfg.Metrics.RecordFallback("chargeback", op)

		centers, slowErr := slow(ctx)
		if slowErr != nil {
			s.cfg.Metrics.RecordQuery("chargeback", "slow", "error", s.now().Sub(start))
			return nil, &observe.APIError{Op: op, Err: fmt.Errorf("fast path: %v; slow path: %w", err, slowErr)}
		}
		s.cfg.Metrics.RecordQuery("chargeback", "slow", "ok", s.now().Sub(start))
		return centers, nil
	}

	centers, err := slow(ctx)
	if err != nil {
		s.cfg.Metrics.RecordQuery("chargeback", "slow", "error", s.now().Sub(start))
		return nil, &observe.APIError{Op: op, Err: err}
	}
	s.cfg.Metrics.RecordQuery("chargeback", "slow", "ok", s.now().Sub(start))
	return centers, nil
}

// TopCostCentersParams parameterizes TopCostCenters.
type TopCostCentersParams struct {
	LookbackDays int
	Limit        int
}

// TopCostCenters returns the highest-spend cost centers across the
// identifier dimensions, highest first. Without billing data the
// result estimates consumption units from live compute state.
func (s *Service) TopCostCenters(ctx context.Context, params TopCostCentersParams) ([]CostCenter, error) {
	if params.LookbackDays == 0 {
		params.LookbackDays = DefaultCostLookbackDays
	}
	if params.LookbackDays < 0 {
		return nil, observe.Validationf("lookback_days must be positive, got %d", params.LookbackDays)
	}
	if params.Limit == 0 {
		params.Limit = DefaultTopLimit
	}
	if params.Limit < 0 {
		return nil, observe.Validationf("limit must be positive, got %d", params.Limit)
	}

	window, err := observe.NewWindow(s.now(), time.Duration(params.LookbackDays)*24*time.Hour)
	if err != nil {
		return nil, err
	}

	var fast func(context.Context) ([]CostCenter, error)
	if s.fastPathReady() {
		fast = func(ctx context.Context) ([]CostCenter, error) {
			return s.topCostCentersFast(ctx, window, params.Limit)
		}
	}

	return s.run(ctx, "top_cost_centers", fast,
		func(ctx context.Context) ([]CostCenter, error) {
			records, err := s.estimateUsage(ctx, window)
			if err != nil {
				return nil, err
			}
			centers := Aggregate(records, Dimension{Kind: KindCluster})
			centers = append(centers, Aggregate(records, Dimension{Kind: KindWarehouse})...)
			sort.SliceStable(centers, func(i, j int) bool {
				if costKey(centers[i]) != costKey(centers[j]) {
					return costKey(centers[i]) > costKey(centers[j])
				}
				return centers[i].Value < centers[j].Value
			})
			if len(centers) > params.Limit {
				centers = centers[:params.Limit]
			}
			return centers, nil
		})
}

func (s *Service) topCostCentersFast(ctx context.Context, window observe.Window, limit int) ([]CostCenter, error) {
	sql := fmt.Sprintf(`
SELECT dimension, dim_value, cost, units
FROM (
  SELECT 'cluster' AS dimension, usage_metadata.cluster_id AS dim_value,
         SUM(list_cost) AS cost, SUM(usage_quantity) AS units
  FROM %[1]s
  WHERE usage_start_time >= :window_start AND usage_metadata.cluster_id IS NOT NULL
  GROUP BY usage_metadata.cluster_id
  UNION ALL
  SELECT 'job', usage_metadata.job_id, SUM(list_cost), SUM(usage_quantity)
  FROM %[1]s
  WHERE usage_start_time >= :window_start AND usage_metadata.job_id IS NOT NULL
  GROUP BY usage_metadata.job_id
  UNION ALL
  SELECT 'warehouse', usage_metadata.warehouse_id, SUM(list_cost), SUM(usage_quantity)
  FROM %[1]s
  WHERE usage_start_time >= :window_start AND usage_metadata.warehouse_id IS NOT NULL
  GROUP BY usage_metadata.warehouse_id
)
ORDER BY cost DESC, dim_value ASC
LIMIT :row_limit`, s.cfg.UsageTable)

	result, err := s.cfg.Executor.Execute(ctx, statement.Statement{
		SQL: sql,
		Params: []statement.Param{
			statement.Timestamp("window_start", window.Start),
			statement.Int64("row_limit", int64(limit)),
		},
		WarehouseID: s.cfg.WarehouseID,
	})
	if err != nil {
		return nil, err
	}
	return parseCostRows(result, "")
}

// CostByDimensionParams parameterizes CostByDimension.
type CostByDimensionParams struct {
	Dimension    string
	LookbackDays int
	Limit        int
}

// CostByDimension aggregates spend by one dimension, highest first.
// Usage rows without a value for the dimension are excluded.
func (s *Service) CostByDimension(ctx context.Context, params CostByDimensionParams) ([]CostCenter, error) {
	dim, err := ParseDimension(params.Dimension)
	if err != nil {
		return nil, err
	}
	if params.LookbackDays == 0 {
		params.LookbackDays = DefaultDimensionLookbackDays
	}
	if params.LookbackDays < 0 {
		return nil, observe.Validationf("lookback_days must be positive, got %d", params.LookbackDays)
	}
	if params.Limit == 0 {
		params.Limit = DefaultDimensionLimit
	}
	if params.Limit < 0 {
		return nil, observe.Validationf("limit must be positive, got %d", params.Limit)
	}

	window, err := observe.NewWindow(s.now(), time.Duration(params.LookbackDays)*24*time.Hour)
	if err != nil {
		return nil, err
	}

	var fast func(context.Context) ([]CostCenter, error)
	if s.fastPathReady() {
		fast = func(ctx context.Context) ([]CostCenter, error) {
			return s.costByDimensionFast(ctx, dim, window, params.Limit)
		}
	}

	return s.run(ctx, "cost_by_dimension", fast,
		func(ctx context.Context) ([]CostCenter, error) {
			records, err := s.estimateUsage(ctx, window)
			if err != nil {
				return nil, err
			}
			centers := Aggregate(records, dim)
			if len(centers) > params.Limit {
				centers = centers[:params.Limit]
			}
			return centers, nil
		})
}

func (s *Service) costByDimensionFast(ctx context.Context, dim Dimension, window observe.Window, limit int) ([]CostCenter, error) {
	// The column expression comes from the dimension allow-list, never
	// from raw request text.
	col := dim.columnExpr()
	sql := fmt.Sprintf(`
SELECT %s AS dim_value, SUM(list_cost) AS cost, SUM(usage_quantity) AS units
FROM %s
WHERE usage_start_time >= :window_start AND %s IS NOT NULL
GROUP BY dim_value
ORDER BY cost DESC, dim_value ASC
LIMIT :row_limit`, col, s.cfg.UsageTable, col)

	result, err := s.cfg.Executor.Execute(ctx, statement.Statement{
		SQL: sql,
		Params: []statement.Param{
			statement.Timestamp("window_start", window.Start),
			statement.Int64("row_limit", int64(limit)),
		},
		WarehouseID: s.cfg.WarehouseID,
	})
	if err != nil {
		return nil, err
	}
	return parseCostRows(result, dim.String())
}

// parseCostRows decodes [dim_value, cost, units] rows, or
// [dimension, dim_value, cost, units] when dimension is empty.
func parseCostRows(result *statement.Result, dimension string) ([]CostCenter, error) {
	centers := make([]CostCenter, 0, len(result.Rows))
	for _, row := range result.Rows {
		var center CostCenter
		var costCell, unitsCell statement.Value

		if dimension == "" {
			if len(row) < 4 {
				return nil, fmt.Errorf("cost row has %d columns, want 4", len(row))
			}
			center.Dimension = row[0].S
			center.Value = row[1].S
			costCell, unitsCell = row[2], row[3]
		} else {
			if len(row) < 3 {
				return nil, fmt.Errorf("cost row has %d columns, want 3", len(row))
			}
			center.Dimension = dimension
			center.Value = row[0].S
			costCell, unitsCell = row[1], row[2]
		}

		center.Basis = CostBasisActual
		if costCell.Valid {
			cost, err := costCell.Float64()
			if err != nil {
				return nil, err
			}
			center.Cost = &cost
		}
		if unitsCell.Valid {
			units, err := unitsCell.Float64()
			if err != nil {
				return nil, err
			}
			center.Units = &units
		}
		centers = append(centers, center)
	}
	return centers, nil
}

// BudgetStatusParams parameterizes BudgetStatus.
type BudgetStatusParams struct {
	Dimension     string
	PeriodDays    int
	WarnThreshold float64
}

// BudgetStatus evaluates actual spend against budget allocations for
// one dimension, most utilized first. When the billing usage table is
// not provisioned there is nothing to evaluate and the result is
// empty.
func (s *Service) BudgetStatus(ctx context.Context, params BudgetStatusParams) ([]BudgetStanding, error) {
	dim, err := ParseDimension(params.Dimension)
	if err != nil {
		return nil, err
	}
	if params.PeriodDays == 0 {
		params.PeriodDays = DefaultPeriodDays
	}
	if params.PeriodDays < 0 {
		return nil, observe.Validationf("period_days must be positive, got %d", params.PeriodDays)
	}
	if params.WarnThreshold == 0 {
		params.WarnThreshold = DefaultWarnThreshold
	}
	if params.WarnThreshold <= 0 || params.WarnThreshold >= 1 {
		return nil, observe.Validationf("warn_threshold must be between 0 and 1, got %g", params.WarnThreshold)
	}

	window, err := observe.NewWindow(s.now(), time.Duration(params.PeriodDays)*24*time.Hour)
	if err != nil {
		return nil, err
	}

	if !s.fastPathReady() {
		s.log().Info("billing usage table not configured, nothing to evaluate")
		return []BudgetStanding{}, nil
	}
	ok, err := s.cfg.Executor.TableExists(ctx, s.cfg.WarehouseID, s.cfg.UsageTable)
	if err != nil {
		return nil, &observe.APIError{Op: "budget_status", Err: err}
	}
	if !ok {
		s.log().Info("billing usage table not provisioned, nothing to evaluate",
			"table", s.cfg.UsageTable,
		)
		return []BudgetStanding{}, nil
	}

	actuals, err := s.costByDimensionFast(ctx, dim, window, budgetActualsCap)
	if err != nil {
		return nil, &observe.APIError{Op: "budget_status", Err: err}
	}

	budgets, err := s.loadBudgets(ctx, dim)
	if err != nil {
		return nil, err
	}

	return EvaluateBudgets(actuals, budgets, params.WarnThreshold)
}

// loadBudgets reads allocations from the provisioned budget table when
// available, otherwise from the local store.
func (s *Service) loadBudgets(ctx context.Context, dim Dimension) ([]BudgetAllocation, error) {
	if s.cfg.BudgetTable != "" {
		ok, err := s.cfg.Executor.TableExists(ctx, s.cfg.WarehouseID, s.cfg.BudgetTable)
		if err != nil {
			return nil, &observe.APIError{Op: "budget_status", Err: err}
		}
		if ok {
			sql := fmt.Sprintf(`
SELECT dim_value, SUM(budget_amount) AS budget
FROM %s
WHERE dimension = :dimension
GROUP BY dim_value`, s.cfg.BudgetTable)

			result, err := s.cfg.Executor.Execute(ctx, statement.Statement{
				SQL: sql,
				Params: []statement.Param{
					statement.String("dimension", dim.String()),
				},
				WarehouseID: s.cfg.WarehouseID,
			})
			if err != nil {
				return nil, &observe.APIError{Op: "budget_status", Err: err}
			}

			allocs := make([]BudgetAllocation, 0, len(result.Rows))
			for _, row := range result.Rows {
				if len(row) < 2 {
					return nil, &observe.APIError{Op: "budget_status", Err: fmt.Errorf("budget row has %d columns, want 2", len(row))}
				}
				amount, err := row[1].Float64()
				if err != nil {
					return nil, &observe.APIError{Op: "budget_status", Err: err}
				}
				allocs = append(allocs, BudgetAllocation{
					Dimension: dim.String(),
					Value:     row[0].S,
					Amount:    amount,
				})
			}
			return allocs, nil
		}
		s.log().Info("budget table not provisioned, using local allocations",
			"table", s.cfg.BudgetTable,
		)
	}

	if s.cfg.Store == nil {
		return nil, nil
	}
	allocs, err := s.cfg.Store.ListBudgets(ctx, dim.String())
	if err != nil {
		return nil, &observe.APIError{Op: "budget_status", Err: err}
	}
	return allocs, nil
}

// estimateUsage derives usage records from live compute state: cluster
// running time from lifecycle events and warehouse running time scaled
// by size. Estimates carry consumption units only; cost stays nil.
func (s *Service) estimateUsage(ctx context.Context, window observe.Window) ([]RawUsage, error) {
	if s.cfg.Platform == nil {
		return nil, fmt.Errorf("no platform client configured for estimation")
	}

	summaries, err := s.cfg.Platform.ListClusters(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var records []RawUsage

	sem := make(chan struct{}, s.fanout())
	var wg sync.WaitGroup
	for _, summary := range summaries {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(summary platform.ClusterSummary) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, err := s.estimateCluster(ctx, summary, window)
			if err != nil {
				s.log().Warn("failed to estimate cluster usage, skipping",
					"cluster_id", summary.ClusterID,
					"error", err,
				)
				return
			}
			if rec != nil {
				mu.Lock()
				records = append(records, *rec)
				mu.Unlock()
			}
		}(summary)
	}
	wg.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	warehouses, err := s.cfg.Platform.ListWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	for _, wh := range warehouses {
		if !wh.State.Is("RUNNING") {
			continue
		}
		multiplier, ok := warehouseSizeUnits[wh.ClusterSize]
		if !ok {
			multiplier = 1
		}
		units := window.Duration().Hours() * multiplier
		records = append(records, RawUsage{
			WarehouseID: wh.ID,
			Units:       &units,
			Start:       window.Start,
			End:         window.End,
			Basis:       CostBasisEstimated,
		})
	}

	return records, nil
}

// estimateCluster computes one cluster's running hours inside the
// window from its event log, scaled by node count.
func (s *Service) estimateCluster(ctx context.Context, summary platform.ClusterSummary, window observe.Window) (*RawUsage, error) {
	detail, err := s.cfg.Platform.GetCluster(ctx, summary.ClusterID)
	if err != nil {
		return nil, err
	}

	events, err := s.cfg.Platform.ListEvents(ctx, summary.ClusterID, window.Start)
	if err != nil {
		return nil, err
	}

	// Walk events oldest first, accumulating running intervals.
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})

	var runningSeconds float64
	var runStart time.Time
	active := false
	for _, ev := range events {
		at := time.UnixMilli(ev.Timestamp)
		switch {
		case ev.Type.Is(clusterRunStates...):
			if !active {
				runStart = clampTime(at, window)
				active = true
			}
		case ev.Type.Is(clusterStopStates...):
			if active {
				runningSeconds += clampTime(at, window).Sub(runStart).Seconds()
				active = false
			}
		}
	}
	switch {
	case active:
		runningSeconds += window.End.Sub(runStart).Seconds()
	case len(events) == 0 && detail.State.Is("RUNNING", "RESIZING", "RESTARTING"):
		// No events in the window: a running cluster was up the whole
		// window, or since it started if that is later.
		start := window.Start
		if detail.StartTime > 0 {
			start = clampTime(time.UnixMilli(detail.StartTime), window)
		}
		runningSeconds = window.End.Sub(start).Seconds()
	}

	if runningSeconds <= 0 {
		return nil, nil
	}

	nodes := float64(detail.NumWorkers + 1)
	units := runningSeconds / 3600.0 * nodes
	return &RawUsage{
		ClusterID: summary.ClusterID,
		Tags:      detail.CustomTags,
		Units:     &units,
		Start:     window.Start,
		End:       window.End,
		Basis:     CostBasisEstimated,
	}, nil
}

// clampTime bounds t into the window.
func clampTime(t time.Time, window observe.Window) time.Time {
	if t.Before(window.Start) {
		return window.Start
	}
	if t.After(window.End) {
		return window.End
	}
	return t
}
