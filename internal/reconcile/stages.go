package reconcile

import (
	"scummsync/internal/inistore"
	"scummsync/internal/library"
	"scummsync/internal/logging"
	"scummsync/internal/marker"
)

// removeSurplus is stage 1.
func (p *pass) removeSurplus() {
	games := p.store.GameSections()

	inRoot := make(map[string]struct{})
	for _, sec := range games {
		if cp := p.contentPath(sec); p.root.IsDirectChild(cp) {
			inRoot[library.NormalizeKey(cp)] = struct{}{}
		}
	}

	claimed := make(map[string]*inistore.Section)
	for _, sec := range games {
		cp := p.contentPath(sec)
		if !p.root.IsDirectChild(cp) {
			p.drop(sec, StageSurplus, "outside library root")
			p.dropForeignMarker(sec, cp, inRoot)
			continue
		}
		key := library.NormalizeKey(cp)
		if first, ok := claimed[key]; ok {
			p.drop(sec, StageSurplus, "duplicate of ["+first.Label()+"]")
			continue
		}
		claimed[key] = sec
	}
}

// dropForeignMarker deletes the marker a foreign section would own inside the
// root, provided it names that section and no in-root section uses the same
// content directory.
func (p *pass) dropForeignMarker(sec *inistore.Section, cp string, inRoot map[string]struct{}) {
	if library.NormalizeKey(cp) == library.NormalizeKey(p.root.Dir()) {
		return
	}
	name := p.root.MarkerName(cp)
	if _, used := inRoot[library.NormalizeKey(p.root.ContentDir(name))]; used {
		return
	}
	m := p.markers.Get(name)
	if m.State != marker.Set || (m.ID != sec.Label() && m.ID != sec.GameID()) {
		return
	}
	p.plan(marker.Op{Kind: marker.OpDelete, Name: name, Reason: "marker of foreign section [" + sec.Label() + "]"})
}

func (p *pass) drop(sec *inistore.Section, stage, reason string) {
	p.store.Remove(sec)
	p.report.Removed = append(p.report.Removed, Removal{
		Label:  sec.Label(),
		Path:   sec.Path(),
		Stage:  stage,
		Reason: reason,
	})
	p.logger.Info("section removed",
		logging.String(logging.FieldStage, stage),
		logging.String("label", sec.Label()),
		logging.String("path", sec.Path()),
		logging.String("reason", reason),
	)
}

// removeOrphanMarkers is stage 2. Marker ids are checked against the sections
// as they will stand after stage 3, so a marker holding a label that stage 3
// renames away is removed in the same pass.
func (p *pass) removeOrphanMarkers() {
	ids := make(map[string]struct{})
	owners := make(map[string]*inistore.Section)
	for _, sec := range p.canonicalPreview() {
		ids[sectionID(sec)] = struct{}{}
		owners[p.markerName(sec)] = sec
	}

	for _, name := range p.markers.Names() {
		m := p.markers[name]
		if m.State != marker.Set {
			continue
		}
		if _, ok := ids[m.ID]; ok {
			continue
		}
		if base, _, ok := library.SplitSuffix(m.ID); ok {
			if owner := owners[name]; owner != nil && (owner.Label() == base || owner.GameID() == base) {
				continue
			}
		}
		p.plan(marker.Op{Kind: marker.OpDelete, Name: name, Reason: "orphaned id " + m.ID})
		p.logger.Info("orphan marker removed",
			logging.String(logging.FieldStage, StageOrphans),
			logging.String("marker", name),
			logging.String(logging.FieldGameID, m.ID),
		)
	}
}

// canonicalPreview returns the game sections stage 3 would leave, computed on
// a copy of the store.
func (p *pass) canonicalPreview() []*inistore.Section {
	preview := &pass{root: p.root, store: p.store.Clone(), logger: logging.NewNop()}
	preview.canonicalize()
	return preview.store.GameSections()
}

// canonicalize is stage 3.
func (p *pass) canonicalize() {
	for _, sec := range p.store.GameSections() {
		if !p.present(sec) {
			continue
		}
		id := sec.GameID()
		if id == "" {
			p.report.Diagnostics = append(p.report.Diagnostics, Diagnostic{
				Kind:   DiagMissingGameID,
				ID:     sec.Label(),
				Labels: []string{sec.Label()},
			})
			continue
		}
		if sec.Label() == id {
			continue
		}

		displaced := ""
		if holder := p.holder(id, sec); holder != nil {
			if !holder.IsGame() {
				p.report.Diagnostics = append(p.report.Diagnostics, Diagnostic{
					Kind:   DiagBlockedRename,
					ID:     id,
					Labels: []string{sec.Label()},
				})
				continue
			}
			displaced = holder.Label()
			p.store.Remove(holder)
			p.report.Removed = append(p.report.Removed, Removal{
				Label:  holder.Label(),
				Path:   holder.Path(),
				Stage:  StageCanonicalize,
				Reason: "label taken by [" + sec.Label() + "]",
			})
			logging.WarnWithContext(p.logger, "canonical label collision; later section wins", "canonical_collision",
				logging.String(logging.FieldStage, StageCanonicalize),
				logging.String(logging.FieldGameID, id),
				logging.String("winner", sec.Label()),
				logging.String("winner_path", sec.Path()),
				logging.String("dropped_path", holder.Path()),
				logging.String(logging.FieldErrorHint, "check the engine's game list for two installs of the same game"),
				logging.String(logging.FieldImpact, "settings of the dropped section are lost"),
				logging.Alert("section_dropped"),
			)
		}

		from := sec.Label()
		sec.Rename(id)
		p.report.Renamed = append(p.report.Renamed, Rename{From: from, To: id, Displaced: displaced})
		p.logger.Info("section renamed",
			logging.String(logging.FieldStage, StageCanonicalize),
			logging.String("from", from),
			logging.String(logging.FieldGameID, id),
		)
	}
}

// holder returns a section other than sec already labelled label.
func (p *pass) holder(label string, sec *inistore.Section) *inistore.Section {
	for _, candidate := range p.store.Sections() {
		if candidate != sec && candidate.Label() == label {
			return candidate
		}
	}
	return nil
}

func (p *pass) present(sec *inistore.Section) bool {
	for _, candidate := range p.store.Sections() {
		if candidate == sec {
			return true
		}
	}
	return false
}

// backfillMarkers is stage 4.
func (p *pass) backfillMarkers() {
	for _, sec := range p.store.GameSections() {
		name := p.markerName(sec)
		id := sectionID(sec)
		m := p.markers.Get(name)
		if m.State == marker.Set && m.ID == id {
			continue
		}
		reason := "marker " + m.State.String()
		if m.State == marker.Set {
			reason = "marker held " + m.ID
		}
		p.plan(marker.Op{Kind: marker.OpWrite, Name: name, ID: id, Reason: reason})
		p.logger.Info("marker written",
			logging.String(logging.FieldStage, StageBackfill),
			logging.String("marker", name),
			logging.String(logging.FieldGameID, id),
			logging.String("reason", reason),
		)
	}
}

// postCheck compares marker ids with section ids without changing anything.
func (p *pass) postCheck() {
	markerIDs := p.markers.IDs()
	sectionIDs := make(map[string][]string)
	for _, sec := range p.store.GameSections() {
		id := sectionID(sec)
		sectionIDs[id] = append(sectionIDs[id], sec.Label())
	}

	for _, id := range sortedKeys(markerIDs) {
		names := markerIDs[id]
		if _, ok := sectionIDs[id]; !ok {
			p.diagnose(Diagnostic{Kind: DiagMarkerWithoutSection, ID: id, Markers: names})
		} else if len(names) > 1 {
			p.diagnose(Diagnostic{Kind: DiagDuplicateMarker, ID: id, Markers: names})
		}
	}
	for _, id := range sortedKeys(sectionIDs) {
		labels := sectionIDs[id]
		if _, ok := markerIDs[id]; !ok {
			p.diagnose(Diagnostic{Kind: DiagSectionWithoutMarker, ID: id, Labels: labels})
		} else if len(labels) > 1 {
			p.diagnose(Diagnostic{Kind: DiagDuplicateSection, ID: id, Labels: labels})
		}
	}
}

func (p *pass) diagnose(d Diagnostic) {
	p.report.Diagnostics = append(p.report.Diagnostics, d)
	logging.WarnWithContext(p.logger, "post-sync check found an unmatched id", "post_sync_inconsistency",
		logging.String(logging.FieldStage, StagePostCheck),
		logging.String("kind", d.Kind),
		logging.String(logging.FieldGameID, d.ID),
		logging.String("detail", d.String()),
		logging.String(logging.FieldErrorHint, "inspect the marker files and scummvm.ini entries named above"),
		logging.String(logging.FieldImpact, "launching the affected game may open the wrong entry"),
	)
}
