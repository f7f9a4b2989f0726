// Package api defines wire-format types and converters for the HTTP API
// layer. It translates internal store models into transport-friendly DTOs so
// consumers never couple to internal types.
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums are exposed as lowercase strings. Timestamps use RFC3339. The
// session's webhook result snapshot passes through as json.RawMessage to
// avoid double-encoding.
package api
