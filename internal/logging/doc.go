// Package logging assembles the slog loggers used by accentid.
//
// Console output is either the plain "ts LEVEL component: msg k=v" layout,
// a tint-colored variant, or JSON lines. When a log directory is configured
// every record is also appended to a JSON log file. Context helpers tag lines
// with the request ID, pipeline stage, and source URL.
package logging
