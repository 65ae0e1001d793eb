package config

import (
	"fmt"
	"strings"
)

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Validate checks the configuration after defaults were applied.
func (c *Config) Validate() error {
	if c.Platform.Host == "" {
		return &ValidationError{Field: "platform.host", Msg: "cannot be empty"}
	}
	if !strings.HasPrefix(c.Platform.Host, "http://") && !strings.HasPrefix(c.Platform.Host, "https://") {
		return &ValidationError{Field: "platform.host", Msg: "must be an http(s) URL"}
	}
	if c.Platform.Token == "" {
		return &ValidationError{Field: "platform.token", Msg: fmt.Sprintf("cannot be empty (set it or the %s environment variable)", TokenEnvVar)}
	}
	if c.Monitor.WarnThreshold <= 0 || c.Monitor.WarnThreshold >= 1 {
		return &ValidationError{Field: "monitor.warn_threshold", Msg: "must be between 0 and 1"}
	}
	if c.Monitor.IdleThreshold <= 0 {
		return &ValidationError{Field: "monitor.idle_threshold", Msg: "must be positive"}
	}
	if c.Limits.MaxConcurrentFetches <= 0 {
		return &ValidationError{Field: "limits.max_concurrent_fetches", Msg: "must be positive"}
	}

	// Fast paths need both a warehouse and table names; tables alone
	// do nothing, which is a misconfiguration worth rejecting.
	anyTable := c.Tables.JobRuns != "" || c.Tables.QueryHistory != "" ||
		c.Tables.Audit != "" || c.Tables.Usage != "" || c.Tables.Budgets != ""
	if anyTable && c.Warehouse.ID == "" {
		return &ValidationError{Field: "warehouse.id", Msg: "required when system tables are configured"}
	}

	return nil
}
