// Package config loads, normalizes, and validates scummsync configuration.
//
// Configuration lives in a TOML file (default ~/.config/scummsync/config.toml)
// and may be overridden field by field through SCUMMSYNC_* environment
// variables. Load expands "~" and relative paths, fills defaults, and rejects
// combinations that would let the reconciler operate on the wrong tree.
//
// Other packages receive a *Config and read fields directly; keep derived
// values (engine binary, marker naming) behind small accessor methods here so
// callers do not duplicate the defaulting rules.
package config
