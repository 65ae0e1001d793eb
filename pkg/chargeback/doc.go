// Package chargeback attributes platform spend to cost centers and
// evaluates it against budgets.
//
// Usage comes from the billing system table when it is provisioned
// (actual cost) or from live enumeration of compute resources
// (estimated consumption units, never a fabricated cost). Aggregation
// groups usage by an allow-listed dimension, including arbitrary tag
// keys, and budget evaluation performs a full outer join of actuals
// against allocations: spend with no budget is breached, a budget with
// no spend is within.
package chargeback
