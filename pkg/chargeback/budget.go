package chargeback

import (
	"math"
	"sort"

	"github.com/lakewatch/lakewatch/pkg/observe"
)

// DefaultWarnThreshold is the utilization at which a cost center
// starts warning.
const DefaultWarnThreshold = 0.8

// EvaluateBudgets joins actual spend against budget allocations and
// classifies every cost center. The join is full outer: spend with no
// allocation evaluates against a zero budget, and an allocation with
// no spend reports zero utilization.
//
// Classification at the boundaries: utilization exactly at the warning
// threshold warns, exactly 1.0 is breached. Spend against a zero
// budget is breached with unbounded utilization; a zero budget with
// zero spend is within.
func EvaluateBudgets(actuals []CostCenter, budgets []BudgetAllocation, warnThreshold float64) ([]BudgetStanding, error) {
	if warnThreshold == 0 {
		warnThreshold = DefaultWarnThreshold
	}
	if warnThreshold <= 0 || warnThreshold >= 1 {
		return nil, observe.Validationf("warn_threshold must be between 0 and 1, got %g", warnThreshold)
	}

	type pair struct {
		dimension string
		actual    float64
		budget    float64
	}

	pairs := map[string]*pair{}
	for _, center := range actuals {
		p := pairs[center.Value]
		if p == nil {
			p = &pair{dimension: center.Dimension}
			pairs[center.Value] = p
		}
		if center.Cost != nil {
			p.actual += *center.Cost
		}
	}
	for _, alloc := range budgets {
		p := pairs[alloc.Value]
		if p == nil {
			p = &pair{dimension: alloc.Dimension}
			pairs[alloc.Value] = p
		}
		if p.dimension == "" {
			p.dimension = alloc.Dimension
		}
		p.budget += alloc.Amount
	}

	standings := make([]BudgetStanding, 0, len(pairs))
	for value, p := range pairs {
		standing := BudgetStanding{
			Dimension: p.dimension,
			Value:     value,
			Actual:    p.actual,
			Budget:    p.budget,
		}

		switch {
		case p.budget > 0:
			standing.Utilization = p.actual / p.budget
		case p.actual > 0:
			standing.Utilization = math.Inf(1)
		default:
			standing.Utilization = 0
		}

		switch {
		case standing.Utilization >= 1:
			standing.Level = LevelBreached
		case standing.Utilization >= warnThreshold:
			standing.Level = LevelWarning
		default:
			standing.Level = LevelWithin
		}

		standings = append(standings, standing)
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Utilization != b.Utilization {
			return a.Utilization > b.Utilization
		}
		return a.Value < b.Value
	})
	return standings, nil
}
