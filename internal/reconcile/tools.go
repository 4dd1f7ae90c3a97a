package reconcile

import (
	"path/filepath"
	"strings"

	"scummsync/internal/inistore"
	"scummsync/internal/library"
	"scummsync/internal/marker"
	"scummsync/internal/services"
)

// PlanMarkers plans one marker per content directory named by a game section
// inside root. The first section claiming a directory wins; later variants
// are skipped. Existing markers holding an id are kept unless overwrite is
// set.
func PlanMarkers(store *inistore.Store, root library.Root, snap marker.Snapshot, overwrite bool) []marker.Op {
	var ops []marker.Op
	seen := make(map[string]struct{})
	for _, sec := range store.GameSections() {
		cp := root.ContentPath(sec.Path())
		if !root.IsDirectChild(cp) {
			continue
		}
		key := library.NormalizeKey(cp)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		name := root.MarkerName(cp)
		id := sectionID(sec)
		m := snap.Get(name)
		if m.State == marker.Set && (!overwrite || m.ID == id) {
			continue
		}
		ops = append(ops, marker.Op{Kind: marker.OpWrite, Name: name, ID: id, Reason: "created from [" + sec.Label() + "]"})
	}
	return ops
}

// CopyEntry copies the game section label from src into dst. An existing
// section in dst is only replaced when force is set; it keeps its position.
// With absolute set a relative path is resolved against root.
func CopyEntry(src, dst *inistore.Store, label string, root library.Root, absolute, force bool) error {
	source := src.Section(label)
	if source == nil || !source.IsGame() {
		return services.Wrap(services.ErrNotFound, "copyentry", "lookup", "Source section ["+label+"] is not a game section", nil)
	}

	target := dst.Section(label)
	switch {
	case target != nil && !force:
		return services.Wrap(services.ErrValidation, "copyentry", "write",
			"Target section ["+label+"] already present; use --force to replace it", nil)
	case target != nil:
		for _, p := range target.Properties() {
			target.Delete(p.Key)
		}
		for _, p := range source.Properties() {
			target.Set(p.Key, p.Value)
		}
	default:
		target = dst.AddCopy(label, source)
	}

	if path := target.Path(); absolute && path != "" && !filepath.IsAbs(path) {
		target.Set(inistore.PathKey, root.ContentPath(path))
	}
	return nil
}

// FindSections returns the labels of game sections whose path ends with
// folder, in store order.
func FindSections(store *inistore.Store, folder string) []string {
	folder = strings.TrimRight(strings.TrimSpace(folder), "/")
	if folder == "" {
		return nil
	}
	var labels []string
	for _, sec := range store.GameSections() {
		if strings.HasSuffix(strings.TrimRight(sec.Path(), "/"), folder) {
			labels = append(labels, sec.Label())
		}
	}
	return labels
}
