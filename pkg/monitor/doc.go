// Package monitor runs scheduled sweeps over the workspace: budget
// standing per cost center and clusters sitting idle. Results go to
// the structured log and, for budgets, to the utilization gauge.
package monitor
