// Package observe implements the dual-path observability query engine.
//
// Each domain service (jobs, clusters, queries, pipelines, security,
// audit) answers threshold-based questions over live platform state.
// Operations that have a server-side tabular representation run a fast
// SQL path first and fall back at most once to a slow live-enumeration
// path; operations without a tabular source run the slow path directly.
// Results are normalized into stable typed records, classified against
// the operation's threshold, sorted into the operation's canonical
// order and truncated only after sorting.
//
// Failures follow a fixed taxonomy: parameter problems surface as
// ValidationError before any I/O, missing single resources as
// ResourceNotFoundError, and an operation whose every path failed as
// APIError. A failure to fetch one item during enumeration never fails
// the operation; the item is logged and skipped.
package observe
