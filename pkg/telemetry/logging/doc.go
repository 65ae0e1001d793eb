// Package logging provides structured logging built on log/slog with
// level and format parsing from configuration.
package logging
