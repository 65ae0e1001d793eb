package monitor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lakewatch/lakewatch/pkg/chargeback"
	"github.com/lakewatch/lakewatch/pkg/observe"
	"github.com/lakewatch/lakewatch/pkg/telemetry/logging"
	"github.com/lakewatch/lakewatch/pkg/telemetry/metrics"
)

// unbudgetedSentinel stands in for unbounded utilization on the gauge.
const unbudgetedSentinel = 1000

// Config wires the monitor.
type Config struct {
	// Schedule is a standard cron expression. Empty disables the
	// monitor.
	Schedule string

	// BudgetDimension is the dimension the budget sweep evaluates,
	// e.g. "tag:team".
	BudgetDimension string

	// WarnThreshold is the budget warning threshold in (0, 1).
	WarnThreshold float64

	// IdleThreshold is how long a cluster may sit idle before the
	// sweep reports it.
	IdleThreshold time.Duration

	// Chargeback answers the budget sweep. Nil skips it.
	Chargeback *chargeback.Service

	// Clusters answers the idle sweep. Nil skips it.
	Clusters *observe.Clusters

	// Logger receives sweep results.
	Logger *logging.Logger

	// Metrics receives budget utilization gauges.
	Metrics *metrics.Collector
}

// Monitor runs the configured sweeps on a cron schedule.
type Monitor struct {
	cfg  Config
	cron *cron.Cron

	mu      sync.Mutex
	running bool
}

// New creates a monitor. Start activates the schedule.
func New(cfg Config) *Monitor {
	return &Monitor{
		cfg:  cfg,
		cron: cron.New(),
	}
}

func (m *Monitor) log() *logging.Logger {
	if m.cfg.Logger != nil {
		return m.cfg.Logger
	}
	return logging.Default()
}

// Start begins the scheduled sweeps. An empty schedule is a no-op.
// The monitor stops when ctx is canceled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.Schedule == "" {
		m.log().Info("monitor schedule not configured, skipping")
		return nil
	}

	if _, err := cron.ParseStandard(m.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", m.cfg.Schedule, err)
	}

	if _, err := m.cron.AddFunc(m.cfg.Schedule, func() {
		m.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	m.cron.Start()
	m.running = true

	m.log().Info("monitor started",
		"schedule", m.cfg.Schedule,
		"budget_dimension", m.cfg.BudgetDimension,
		"idle_threshold", m.cfg.IdleThreshold,
	)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	<-m.cron.Stop().Done()
	m.running = false
	m.log().Info("monitor stopped")
}

// IsRunning reports whether the schedule is active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// NextRun returns the next scheduled sweep time, nil when inactive.
func (m *Monitor) NextRun() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// RunOnce executes one sweep cycle immediately.
func (m *Monitor) RunOnce(ctx context.Context) {
	m.sweepBudgets(ctx)
	m.sweepIdleClusters(ctx)
}

func (m *Monitor) sweepBudgets(ctx context.Context) {
	if m.cfg.Chargeback == nil || m.cfg.BudgetDimension == "" {
		return
	}

	standings, err := m.cfg.Chargeback.BudgetStatus(ctx, chargeback.BudgetStatusParams{
		Dimension:     m.cfg.BudgetDimension,
		WarnThreshold: m.cfg.WarnThreshold,
	})
	if err != nil {
		m.log().Error("budget sweep failed", "dimension", m.cfg.BudgetDimension, "error", err)
		return
	}

	for _, st := range standings {
		if m.cfg.Metrics != nil {
			// Spend against a zero budget evaluates to +Inf; the gauge
			// carries a finite sentinel instead.
			utilization := st.Utilization
			if math.IsInf(utilization, 1) {
				utilization = unbudgetedSentinel
			}
			m.cfg.Metrics.SetBudgetUtilization(st.Dimension, st.Value, utilization)
		}
		switch st.Level {
		case chargeback.LevelBreached:
			m.log().Error("budget breached",
				"dimension", st.Dimension,
				"value", st.Value,
				"actual", st.Actual,
				"budget", st.Budget,
				"utilization", st.Utilization,
			)
		case chargeback.LevelWarning:
			m.log().Warn("budget warning",
				"dimension", st.Dimension,
				"value", st.Value,
				"actual", st.Actual,
				"budget", st.Budget,
				"utilization", st.Utilization,
			)
		}
	}

	m.log().Info("budget sweep completed",
		"dimension", m.cfg.BudgetDimension,
		"cost_centers", len(standings),
	)
}

func (m *Monitor) sweepIdleClusters(ctx context.Context) {
	if m.cfg.Clusters == nil {
		return
	}

	idle, err := m.cfg.Clusters.ListIdleClusters(ctx, observe.IdleClustersParams{
		IdleThreshold: m.cfg.IdleThreshold,
	})
	if err != nil {
		m.log().Error("idle cluster sweep failed", "error", err)
		return
	}

	for _, c := range idle {
		m.log().Warn("idle cluster",
			"cluster_id", c.ClusterID,
			"cluster_name", c.ClusterName,
			"idle_seconds", c.IdleSeconds,
			"auto_termination_minutes", c.AutoTerminationMinutes,
		)
	}

	m.log().Info("idle cluster sweep completed", "idle_clusters", len(idle))
}
