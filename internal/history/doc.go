// Package history records every launch and sync run in a small SQLite
// database under the state directory.
//
// Each row captures how the game id was resolved, how the engine exited, what
// the reconciler changed and the store fingerprint left behind. The last
// fingerprint lets a standalone sync skip work when the store has not moved
// since the previous run.
package history
