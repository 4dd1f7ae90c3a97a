package preflight

import (
	"context"

	"scummsync/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Blocking marks checks whose failure must stop launch and sync.
	Blocking bool
}

// RunAll executes all preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	library := CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir)
	library.Blocking = true
	results = append(results, library)
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	results = append(results, CheckStoreFile("Engine config", cfg.Paths.ConfigFile))
	if cfg.Paths.LibretroConfigFile != "" {
		results = append(results, CheckStoreFile("Libretro config", cfg.Paths.LibretroConfigFile))
	}

	for _, status := range CheckSystemDeps(ctx, cfg) {
		detail := status.Path
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}

	return results
}

// FirstBlocking returns the first failed blocking check.
func FirstBlocking(results []Result) (Result, bool) {
	for _, r := range results {
		if r.Blocking && !r.Passed {
			return r, true
		}
	}
	return Result{}, false
}
