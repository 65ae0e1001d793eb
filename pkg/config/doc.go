// Package config loads, defaults and validates the YAML configuration,
// and can watch the file for changes.
package config
