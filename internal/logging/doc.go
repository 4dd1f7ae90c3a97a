// Package logging assembles structured slog loggers and formatting helpers used
// across scummsync.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so the orchestrator and the
// reconciler tag log lines with session IDs, game IDs, and stages. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup so every command
// emits records with the same shape.
package logging
