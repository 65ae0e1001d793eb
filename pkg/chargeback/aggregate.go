package chargeback

import "sort"

// Aggregate groups raw usage by dimension and sums cost and units per
// value. Records without a value for the dimension are dropped, not
// grouped under a placeholder. The result sorts highest cost first
// (highest units first when no record carried cost), with the value as
// tie-break.
func Aggregate(records []RawUsage, dim Dimension) []CostCenter {
	type bucket struct {
		cost      float64
		hasCost   bool
		units     float64
		hasUnits  bool
		estimated bool
	}

	buckets := map[string]*bucket{}
	for _, rec := range records {
		value, ok := dim.valueOf(rec)
		if !ok {
			continue
		}
		b := buckets[value]
		if b == nil {
			b = &bucket{}
			buckets[value] = b
		}
		if rec.Cost != nil {
			b.cost += *rec.Cost
			b.hasCost = true
		}
		if rec.Units != nil {
			b.units += *rec.Units
			b.hasUnits = true
		}
		if rec.Basis == CostBasisEstimated {
			b.estimated = true
		}
	}

	centers := make([]CostCenter, 0, len(buckets))
	for value, b := range buckets {
		center := CostCenter{
			Dimension: dim.String(),
			Value:     value,
			Basis:     CostBasisActual,
		}
		if b.hasCost {
			cost := b.cost
			center.Cost = &cost
		}
		if b.hasUnits {
			units := b.units
			center.Units = &units
		}
		// Any estimated contribution taints the whole bucket.
		if b.estimated {
			center.Basis = CostBasisEstimated
		}
		centers = append(centers, center)
	}

	sort.SliceStable(centers, func(i, j int) bool {
		a, b := centers[i], centers[j]
		ac, bc := costKey(a), costKey(b)
		if ac != bc {
			return ac > bc
		}
		return a.Value < b.Value
	})
	return centers
}

// costKey ranks a center by cost when present, otherwise by units.
func costKey(c CostCenter) float64 {
	if c.Cost != nil {
		return *c.Cost
	}
	if c.Units != nil {
		return *c.Units
	}
	return 0
}
