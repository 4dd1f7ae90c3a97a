// Package launch sequences one interactive engine session: resolve the game
// id for the requested entry, run the engine in the foreground, then
// reconcile the configuration store with the marker files if the engine
// edited it.
//
// Resolution is a small state machine:
//
//	no base name                  -> NoMarker (engine UI, no target)
//	marker absent or empty        -> Detecting -> Resolved | Failed
//	marker holds an id            -> Validating -> Confirmed | Corrected | PathFallback
//
// Only Failed aborts the launch (ErrDetectionFailure); every other problem is
// logged and the session continues in a degraded mode. Launch and Sync hold
// an advisory lock under the state directory for their whole duration.
package launch
