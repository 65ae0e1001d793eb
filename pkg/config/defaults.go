package config

import "time"

// Default values applied to unset fields.
const (
	DefaultPlatformTimeout      = 30 * time.Second
	DefaultPageSize             = 100
	DefaultWaitTimeout          = 30 * time.Second
	DefaultMaxConcurrentFetches = 8
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "json"
	DefaultMetricsNamespace     = "lakewatch"
	DefaultMetricsSubsystem     = "engine"
	DefaultBudgetDimension      = "tag:team"
	DefaultWarnThreshold        = 0.8
	DefaultIdleThreshold        = 2 * time.Hour
)

// ApplyDefaults fills unset fields in place.
func (c *Config) ApplyDefaults() {
	if c.Platform.Timeout <= 0 {
		c.Platform.Timeout = DefaultPlatformTimeout
	}
	if c.Platform.PageSize <= 0 {
		c.Platform.PageSize = DefaultPageSize
	}
	if c.Warehouse.WaitTimeout <= 0 {
		c.Warehouse.WaitTimeout = DefaultWaitTimeout
	}
	if c.Limits.MaxConcurrentFetches <= 0 {
		c.Limits.MaxConcurrentFetches = DefaultMaxConcurrentFetches
	}
	if c.Telemetry.Logging.Level == "" {
		c.Telemetry.Logging.Level = DefaultLogLevel
	}
	if c.Telemetry.Logging.Format == "" {
		c.Telemetry.Logging.Format = DefaultLogFormat
	}
	if c.Telemetry.Metrics.Namespace == "" {
		c.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if c.Telemetry.Metrics.Subsystem == "" {
		c.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if c.Monitor.BudgetDimension == "" {
		c.Monitor.BudgetDimension = DefaultBudgetDimension
	}
	if c.Monitor.WarnThreshold == 0 {
		c.Monitor.WarnThreshold = DefaultWarnThreshold
	}
	if c.Monitor.IdleThreshold <= 0 {
		c.Monitor.IdleThreshold = DefaultIdleThreshold
	}
}
