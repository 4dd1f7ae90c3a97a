// Package detector wraps the engine's own game detection.
//
// Detect runs "<engine> --detect --path=<dir>" and returns the id of the first
// game listed. Add runs "<engine> --add --path=<dir>", which registers the
// game in the configuration store as a side effect, then re-reads the store
// to find the label the engine chose. Both inherit the engine's base
// arguments so they operate on the same store the launcher reconciles.
//
// Command execution goes through the Executor interface; tests inject a fake
// with WithExecutor.
package detector
