// Package platform provides the read-only control-plane client for the
// lakehouse platform under observation.
//
// The package defines one small interface per resource surface (jobs,
// clusters, warehouses, query history, pipelines, permissions) plus a
// Client interface bundling them, and an HTTP implementation that
// handles cursor pagination and API error decoding.
//
// Field values returned by the control plane are not uniformly typed:
// the same semantic state may arrive as a bare string, a number, or an
// object carrying a "value" key, depending on the API surface and SDK
// generation that produced it. FieldValue absorbs all of these shapes
// at decode time and exposes a single canonical string.
package platform
