package config

import "time"

// Config is the root configuration.
type Config struct {
	// Platform configures the control-plane connection.
	Platform PlatformConfig `yaml:"platform"`

	// Warehouse configures fast-path statement execution.
	Warehouse WarehouseConfig `yaml:"warehouse"`

	// Tables names the system tables the fast paths read. Empty names
	// disable the corresponding fast path.
	Tables TablesConfig `yaml:"tables"`

	// Limits bounds live enumeration.
	Limits LimitsConfig `yaml:"limits"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Monitor configures the scheduled sweeps.
	Monitor MonitorConfig `yaml:"monitor"`

	// Store configures the local budget allocation store.
	Store StoreConfig `yaml:"store"`
}

// PlatformConfig is the control-plane connection.
type PlatformConfig struct {
	// Host is the workspace base URL.
	Host string `yaml:"host"`

	// Token is the bearer token. Prefer setting it through the
	// LAKEWATCH_PLATFORM_TOKEN environment variable.
	Token string `yaml:"token"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout"`

	// PageSize is the page size for paginated list calls.
	PageSize int `yaml:"page_size"`
}

// WarehouseConfig selects the warehouse fast paths run on. An empty ID
// disables every fast path.
type WarehouseConfig struct {
	ID          string        `yaml:"id"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

// TablesConfig names the queryable system tables.
type TablesConfig struct {
	JobRuns      string `yaml:"job_runs"`
	QueryHistory string `yaml:"query_history"`
	Audit        string `yaml:"audit"`
	Usage        string `yaml:"usage"`
	Budgets      string `yaml:"budgets"`
}

// LimitsConfig bounds live enumeration.
type LimitsConfig struct {
	// MaxConcurrentFetches bounds the per-item detail fan-out.
	MaxConcurrentFetches int `yaml:"max_concurrent_fetches"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`

	// Listen is the metrics endpoint address, e.g. ":9090". Empty
	// disables the endpoint.
	Listen string `yaml:"listen"`
}

// MonitorConfig configures the scheduled sweeps.
type MonitorConfig struct {
	// Schedule is a cron expression. Empty disables the monitor.
	Schedule string `yaml:"schedule"`

	// BudgetDimension is the dimension the budget sweep evaluates.
	BudgetDimension string `yaml:"budget_dimension"`

	// WarnThreshold is the budget warning threshold in (0, 1).
	WarnThreshold float64 `yaml:"warn_threshold"`

	// IdleThreshold is how long a cluster may sit idle before the
	// sweep reports it.
	IdleThreshold time.Duration `yaml:"idle_threshold"`
}

// StoreConfig is the local budget allocation store.
type StoreConfig struct {
	// Path is the SQLite database path. Empty disables the store.
	Path string `yaml:"path"`
}
