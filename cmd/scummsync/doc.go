// Package main hosts the scummsync CLI entrypoint and command graph.
//
// The Cobra-based command tree wraps the engine launch, reconciles the
// engine's configuration store with the marker files afterwards, and exposes
// the store maintenance helpers (marker creation, variant collapsing, entry
// copying between the native and libretro stores). It centralizes
// configuration resolution and logging setup so subcommands stay small.
package main
