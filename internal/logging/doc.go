// Package logging provides slog construction and shared attribute helpers.
//
// Two output formats are supported: a compact console format intended for
// interactive use (timestamp, level, component prefix, key=value fields) and
// standard JSON for log aggregation. Loggers write to stdout plus an optional
// log file under the configured log directory.
package logging
