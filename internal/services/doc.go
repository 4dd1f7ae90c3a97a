// Package services defines shared utilities consumed by the launch
// orchestrator, the reconciler, and the external engine adapters.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, game IDs, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (external tool, validation, not found) without string matching.
//
// Use these helpers when wiring new logic so operational behaviour (error
// handling, observability) stays uniform across commands.
package services
