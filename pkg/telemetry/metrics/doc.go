// Package metrics exposes Prometheus metrics for the query engine:
// query counts by path and status, fallback counts, latency histograms
// and budget utilization gauges.
package metrics
