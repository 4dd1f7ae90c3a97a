package preflight

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"scummsync/internal/config"
	"scummsync/internal/inistore"
	"scummsync/internal/library"
	"scummsync/internal/marker"
)

// LibraryProbe is a read-only snapshot of markers and game sections.
type LibraryProbe struct {
	Markers      int
	EmptyMarkers int
	Sections     int
	// Unmatched counts markers whose id names no game section.
	Unmatched  int
	StoreFound bool
	Err        error
}

// ProbeLibrary counts markers and sections without changing anything.
func ProbeLibrary(cfg *config.Config) LibraryProbe {
	if cfg == nil {
		return LibraryProbe{Err: errors.New("no configuration")}
	}
	root := library.New(cfg.Paths.LibraryDir, cfg.Markers.Extension)
	snap, err := marker.NewStore(root).ListAll()
	if err != nil {
		return LibraryProbe{Err: err}
	}

	probe := LibraryProbe{Markers: len(snap)}
	ids := make(map[string]struct{})
	store, err := inistore.Load(cfg.Paths.ConfigFile)
	switch {
	case err == nil:
		probe.StoreFound = true
		for _, sec := range store.GameSections() {
			probe.Sections++
			ids[sec.Label()] = struct{}{}
		}
	case !errors.Is(err, inistore.ErrNotFound):
		probe.Err = err
		return probe
	}

	for _, name := range snap.Names() {
		m := snap[name]
		if m.State != marker.Set {
			probe.EmptyMarkers++
			continue
		}
		if _, ok := ids[m.ID]; !ok {
			probe.Unmatched++
		}
	}
	return probe
}

// Detail renders a display-friendly summary for status output.
func (p LibraryProbe) Detail() string {
	if p.Err != nil {
		return "Unavailable: " + p.Err.Error()
	}
	store := fmt.Sprintf("%d game sections", p.Sections)
	if !p.StoreFound {
		store = "no engine config yet"
	}
	return fmt.Sprintf("%d markers (%d undetected, %d unmatched), %s",
		p.Markers, p.EmptyMarkers, p.Unmatched, store)
}

// ProbeEngineVersion returns the first line of "<binary> --version", or ""
// when the engine cannot be run.
func ProbeEngineVersion(binary string) string {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return ""
	}
	if _, err := exec.LookPath(binary); err != nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, binary, "--version").Output() //nolint:gosec
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(first)
}
