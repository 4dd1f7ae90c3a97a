package reconcile

import (
	"errors"
	"strings"
	"testing"

	"scummsync/internal/inistore"
	"scummsync/internal/library"
	"scummsync/internal/marker"
)

var testRoot = library.New("/lib", ".svm")

func parseStore(t *testing.T, data string) *inistore.Store {
	t.Helper()
	store, err := inistore.Parse(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func snapshot(entries map[string]string) marker.Snapshot {
	snap := make(marker.Snapshot)
	for name, id := range entries {
		m := marker.Marker{Name: name, State: marker.Empty}
		if id != "" {
			m.State = marker.Set
			m.ID = id
		}
		snap[name] = m
	}
	return snap
}

func labels(store *inistore.Store) string {
	return strings.Join(store.Labels(), ",")
}

func markerSummary(snap marker.Snapshot) string {
	var parts []string
	for _, name := range snap.Names() {
		m := snap[name]
		parts = append(parts, name+"="+m.ID)
	}
	return strings.Join(parts, ",")
}

func TestHeroScenario(t *testing.T) {
	store := parseStore(t, `[scummvm]
lastselectedgame=hero

[hero]
path=/lib/hero
gameid=hero

[hero-1]
path=/lib/hero
gameid=hero
`)
	markers := snapshot(map[string]string{"hero": "", "hero-1": "hero-1"})

	report := New(testRoot).Reconcile(store, markers)

	if got := labels(store); got != "scummvm,hero" {
		t.Fatalf("unexpected sections %q", got)
	}
	after := markers.ApplyTo(report.MarkerOps)
	if got := markerSummary(after); got != "hero=hero" {
		t.Fatalf("unexpected markers %q", got)
	}
	if err := report.Err(); err != nil {
		t.Fatalf("expected clean post-check, got %v", err)
	}
	if len(markers) != 2 {
		t.Fatal("input snapshot must not be mutated")
	}
}

func TestForeignSectionsRemoved(t *testing.T) {
	store := parseStore(t, `[scummvm]
[demo]
path=/usr/share/scummvm/demo
gameid=demo
[nested]
path=/lib/collection/nested
gameid=nested
[rootonly]
path=/lib
gameid=rootonly
[relative]
path=relative
gameid=relative
[keymapper]
keymap=1
`)
	markers := snapshot(map[string]string{"demo": "demo", "relative": "relative", "nested": "other"})

	report := New(testRoot).Reconcile(store, markers)

	if got := labels(store); got != "scummvm,relative,keymapper" {
		t.Fatalf("unexpected sections %q", got)
	}
	after := markers.ApplyTo(report.MarkerOps)
	if after.Get("demo").State != marker.Absent {
		t.Fatal("marker of foreign section should be deleted")
	}
	if after.Get("relative").ID != "relative" {
		t.Fatal("in-root relative path must be kept with its marker")
	}
	if after.Get("nested").State != marker.Absent {
		t.Fatal("marker with unknown id should be removed as orphan")
	}
	for _, r := range report.Removed {
		if r.Stage != StageSurplus {
			t.Fatalf("unexpected removal stage %+v", r)
		}
	}
}

func TestForeignMarkerKeptWhenInRootSectionUsesIt(t *testing.T) {
	store := parseStore(t, `[monkey]
path=/lib/monkey
gameid=monkey
[monkey-1]
path=/media/usb/monkey
gameid=monkey
`)
	markers := snapshot(map[string]string{"monkey": "monkey"})

	report := New(testRoot).Reconcile(store, markers)

	if got := labels(store); got != "monkey" {
		t.Fatalf("unexpected sections %q", got)
	}
	if len(report.MarkerOps) != 0 {
		t.Fatalf("expected no marker ops, got %v", report.MarkerOps)
	}
}

func TestDuplicateSuppressionFirstWins(t *testing.T) {
	store := parseStore(t, `[b-label]
path=/lib/game/
gameid=game
[a-label]
path=/lib/game
gameid=game
`)
	report := New(testRoot).Reconcile(store, snapshot(nil))

	if got := labels(store); got != "game" {
		t.Fatalf("unexpected sections %q", got)
	}
	if len(report.Removed) != 1 || report.Removed[0].Label != "a-label" {
		t.Fatalf("expected a-label removed, got %+v", report.Removed)
	}
	if len(report.Renamed) != 1 || report.Renamed[0].From != "b-label" {
		t.Fatalf("expected b-label renamed, got %+v", report.Renamed)
	}
}

func TestCanonicalizationKeepsProperties(t *testing.T) {
	store := parseStore(t, `[sword-2]
description=Broken Sword
path=/lib/sword
gameid=sword
fullscreen=true
`)
	markers := snapshot(map[string]string{"sword": "sword-2"})

	report := New(testRoot).Reconcile(store, markers)

	want := "[sword]\ndescription=Broken Sword\npath=/lib/sword\ngameid=sword\nfullscreen=true\n"
	if got := string(store.Bytes()); got != want {
		t.Fatalf("unexpected store:\n%s", got)
	}
	after := markers.ApplyTo(report.MarkerOps)
	if after.Get("sword").ID != "sword" {
		t.Fatalf("expected marker rewritten to canonical id, got %q", after.Get("sword").ID)
	}
}

func TestFuzzyOrphanMatch(t *testing.T) {
	store := parseStore(t, `[tentacle]
path=/lib/tentacle
gameid=tentacle
`)
	markers := snapshot(map[string]string{
		"tentacle": "tentacle-1",
		"dott":     "tentacle-2",
	})

	report := New(testRoot).Reconcile(store, markers)
	after := markers.ApplyTo(report.MarkerOps)

	if after.Get("tentacle").ID != "tentacle" {
		t.Fatalf("own disambiguated marker should be kept and canonicalized, got %+v", after.Get("tentacle"))
	}
	if after.Get("dott").State != marker.Absent {
		t.Fatal("disambiguated marker of another directory should be removed")
	}
}

func TestCanonicalCollisionLastWins(t *testing.T) {
	store := parseStore(t, `[queen]
path=/lib/queen-floppy
gameid=queen
[queen-1]
path=/lib/queen-cd
gameid=queen
engineid=queen
`)
	markers := snapshot(map[string]string{"queen-floppy": "queen", "queen-cd": "queen-1"})

	report := New(testRoot).Reconcile(store, markers)

	if got := labels(store); got != "queen" {
		t.Fatalf("unexpected sections %q", got)
	}
	if store.Section("queen").Path() != "/lib/queen-cd" {
		t.Fatalf("expected renamed section to win, got %q", store.Section("queen").Path())
	}
	if len(report.Renamed) != 1 || report.Renamed[0].Displaced != "queen" {
		t.Fatalf("expected displacement recorded, got %+v", report.Renamed)
	}
	err := report.Err()
	if !errors.Is(err, ErrPostSyncInconsistency) {
		t.Fatalf("expected post-sync inconsistency for duplicate marker, got %v", err)
	}
	if report.Diagnostics[0].Kind != DiagDuplicateMarker {
		t.Fatalf("unexpected diagnostic %+v", report.Diagnostics[0])
	}
}

func TestBlockedRenameAndMissingGameID(t *testing.T) {
	store := parseStore(t, `[scummvm]
[odd]
path=/lib/odd
gameid=scummvm
[plain]
path=/lib/plain
`)
	report := New(testRoot).Reconcile(store, snapshot(nil))

	if got := labels(store); got != "scummvm,odd,plain" {
		t.Fatalf("non-game sections must never be displaced, got %q", got)
	}
	kinds := map[string]bool{}
	for _, d := range report.Diagnostics {
		kinds[d.Kind] = true
	}
	if !kinds[DiagBlockedRename] || !kinds[DiagMissingGameID] {
		t.Fatalf("expected blocked rename and missing gameid diagnostics, got %+v", report.Diagnostics)
	}
	after := snapshot(nil).ApplyTo(report.MarkerOps)
	if after.Get("plain").ID != "plain" {
		t.Fatalf("section without gameid should be backfilled with its label")
	}
}

func TestBackfillNewEntries(t *testing.T) {
	store := parseStore(t, `[scummvm]
[monkey]
path=/lib/monkey
gameid=monkey
[loom]
path=/lib/loom
gameid=loom
`)
	markers := snapshot(map[string]string{"monkey": "monkey", "loom": ""})

	report := New(testRoot).Reconcile(store, markers)

	if len(report.MarkerOps) != 1 {
		t.Fatalf("expected one marker op, got %v", report.MarkerOps)
	}
	op := report.MarkerOps[0]
	if op.Kind != marker.OpWrite || op.Name != "loom" || op.ID != "loom" {
		t.Fatalf("unexpected op %+v", op)
	}
	if report.StoreChanged() {
		t.Fatal("store should be unchanged")
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	inputs := []struct {
		store   string
		markers map[string]string
	}{
		{
			store: `[scummvm]
[hero]
path=/lib/hero
gameid=hero
[hero-1]
path=/lib/hero
gameid=hero
[sword-2]
path=/lib/sword
gameid=sword
[demo]
path=/opt/demo
gameid=demo
[queen]
path=/lib/q1
gameid=queen
[queen-1]
path=/lib/q2
gameid=queen
`,
			markers: map[string]string{"hero": "", "hero-1": "hero-1", "sword": "sword-2", "demo": "demo", "stale": "gone-3", "q1": "queen"},
		},
		{
			store:   "[scummvm]\n",
			markers: map[string]string{"a": "a"},
		},
		{
			store:   "[hero-1]\npath=/lib/hero2\ngameid=hero\n",
			markers: map[string]string{"zzz": "hero-1"},
		},
		{
			store:   "[hero]\npath=/lib/hero\ngameid=hero\n[hero-1]\npath=/lib/hero2\ngameid=hero\n",
			markers: map[string]string{"zzz": "hero-1"},
		},
	}
	for i, in := range inputs {
		store := parseStore(t, in.store)
		markers := snapshot(in.markers)
		rec := New(testRoot)

		first := rec.Reconcile(store, markers)
		converged := markers.ApplyTo(first.MarkerOps)
		bytesAfterFirst := string(store.Bytes())

		second := rec.Reconcile(store, converged)
		if second.Changed() {
			t.Fatalf("input %d: second pass changed something: %+v", i, second)
		}
		if string(store.Bytes()) != bytesAfterFirst {
			t.Fatalf("input %d: store bytes changed on second pass", i)
		}
		if len(second.Diagnostics) != len(first.Diagnostics) {
			t.Fatalf("input %d: diagnostics differ between passes", i)
		}
	}
}

func TestMarkerHoldingRenamedLabelRemovedInOnePass(t *testing.T) {
	store := parseStore(t, "[hero-1]\npath=/lib/hero2\ngameid=hero\n")
	markers := snapshot(map[string]string{"zzz": "hero-1"})

	report := New(testRoot).Reconcile(store, markers)
	after := markers.ApplyTo(report.MarkerOps)

	if got := markerSummary(after); got != "hero2=hero" {
		t.Fatalf("unexpected markers %q", got)
	}
	if err := report.Err(); err != nil {
		t.Fatalf("expected clean post-check, got %v", err)
	}
}

func TestBijectionAfterConvergence(t *testing.T) {
	store := parseStore(t, `[scummvm]
[a-1]
path=/lib/a
gameid=a
[b]
path=/lib/b
gameid=b
[c]
path=c
gameid=c
`)
	markers := snapshot(map[string]string{"a": "", "b": "x", "z": "z"})
	report := New(testRoot).Reconcile(store, markers)
	if err := report.Err(); err != nil {
		t.Fatalf("unexpected diagnostics: %v", err)
	}

	after := markers.ApplyTo(report.MarkerOps)
	markerIDs := after.IDs()
	sectionIDs := map[string]bool{}
	for _, sec := range store.GameSections() {
		sectionIDs[sec.GameID()] = true
		if sec.Label() != sec.GameID() {
			t.Fatalf("label %q not canonical", sec.Label())
		}
	}
	if len(markerIDs) != len(sectionIDs) {
		t.Fatalf("marker ids %v do not match section ids %v", markerIDs, sectionIDs)
	}
	for id, names := range markerIDs {
		if !sectionIDs[id] || len(names) != 1 {
			t.Fatalf("id %q not in bijection: markers %v", id, names)
		}
	}
}
