// Package logging provides slog attribute helpers so that log fields keep
// consistent names across the codebase, and PII-safe formatting for
// account identifiers.
package logging
