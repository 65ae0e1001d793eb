package chargeback

import "time"

// CostBasis states whether a figure was read from billing data or
// estimated from live resource state.
type CostBasis string

const (
	// CostBasisActual marks figures from the billing table.
	CostBasisActual CostBasis = "actual"
	// CostBasisEstimated marks figures derived from live enumeration.
	// Estimated records carry consumption units and no cost.
	CostBasisEstimated CostBasis = "estimated"
)

// RawUsage is one attributable slice of consumption before
// aggregation. Cost and Units are pointers: an estimation path that
// cannot produce a figure leaves it nil rather than zero-filling.
type RawUsage struct {
	WorkspaceID string
	ClusterID   string
	JobID       string
	WarehouseID string
	Tags        map[string]string
	Cost        *float64
	Units       *float64
	Start       time.Time
	End         time.Time
	Basis       CostBasis
}

// CostCenter is aggregated usage for one dimension value.
type CostCenter struct {
	Dimension string    `json:"dimension"`
	Value     string    `json:"value"`
	Cost      *float64  `json:"cost,omitempty"`
	Units     *float64  `json:"units,omitempty"`
	Basis     CostBasis `json:"basis"`
}

// BudgetAllocation is one budget for one dimension value.
type BudgetAllocation struct {
	Dimension string    `json:"dimension"`
	Value     string    `json:"value"`
	Amount    float64   `json:"amount"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// BudgetLevel classifies a cost center against its budget.
type BudgetLevel string

const (
	// LevelWithin means utilization is below the warning threshold.
	LevelWithin BudgetLevel = "within"
	// LevelWarning means utilization reached the warning threshold
	// but not the budget.
	LevelWarning BudgetLevel = "warning"
	// LevelBreached means spend met or exceeded the budget, or exists
	// against a zero budget.
	LevelBreached BudgetLevel = "breached"
)

// BudgetStanding is the evaluated position of one cost center.
// Utilization is +Inf for spend against a zero budget.
type BudgetStanding struct {
	Dimension   string      `json:"dimension"`
	Value       string      `json:"value"`
	Actual      float64     `json:"actual"`
	Budget      float64     `json:"budget"`
	Utilization float64     `json:"utilization"`
	Level       BudgetLevel `json:"level"`
}
