package inistore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scummsync/internal/services"
)

const sampleIni = `; written by the engine
[scummvm]
gfx_mode = opengl
lastselectedgame=hero

[hero]
description=Hero Quest (DOS)
path=/lib/hero
gameid=hero
engineid=sci
# keep me

[hero-1]
path=/lib/hero
gameid=hero
not a property line
[keymapper]
keymap_global=x
`

func mustParse(t *testing.T, data string) *Store {
	t.Helper()
	store, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return store
}

func TestParseRoundTripIsByteIdentical(t *testing.T) {
	for _, data := range []string{
		sampleIni,
		strings.TrimSuffix(sampleIni, "\n"),
		"",
		"\n\n",
		"orphan=1\r\n[a]\r\nk = v\r\n",
	} {
		store := mustParse(t, data)
		if got := string(store.Bytes()); got != data {
			t.Fatalf("round trip mismatch:\n got %q\nwant %q", got, data)
		}
	}
}

func TestParseSectionsAndProperties(t *testing.T) {
	store := mustParse(t, sampleIni)

	labels := strings.Join(store.Labels(), ",")
	if labels != "scummvm,hero,hero-1,keymapper" {
		t.Fatalf("unexpected labels %q", labels)
	}
	games := store.GameSections()
	if len(games) != 2 {
		t.Fatalf("expected 2 game sections, got %d", len(games))
	}
	if v, ok := store.Section("scummvm").Get("gfx_mode"); !ok || v != "opengl" {
		t.Fatalf("expected trimmed value, got %q ok=%v", v, ok)
	}
	hero := store.Section("hero")
	if hero.GameID() != "hero" || hero.Path() != "/lib/hero" {
		t.Fatalf("unexpected hero section: id=%q path=%q", hero.GameID(), hero.Path())
	}
	props := hero.Properties()
	if len(props) != 4 || props[0].Key != "description" {
		t.Fatalf("unexpected hero properties %+v", props)
	}
	if store.Section("keymapper").IsGame() {
		t.Fatal("keymapper is not a game section")
	}
}

func TestSetRenameAndRemove(t *testing.T) {
	store := mustParse(t, sampleIni)

	hero1 := store.Sections()[2]
	hero1.Rename("hero-2")
	hero1.Set("description", "Hero Quest (Amiga)")
	hero1.Set("gameid", "hero")
	store.Section("hero").Set("engineid", "sci32")
	store.Remove(store.Section("keymapper"))

	want := `; written by the engine
[scummvm]
gfx_mode = opengl
lastselectedgame=hero

[hero]
description=Hero Quest (DOS)
path=/lib/hero
gameid=hero
engineid=sci32
# keep me

[hero-2]
path=/lib/hero
gameid=hero
not a property line
description=Hero Quest (Amiga)
`
	if got := string(store.Bytes()); got != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestSetKeepsTrailingBlankLines(t *testing.T) {
	store := mustParse(t, "[a]\nx=1\n\n[b]\n")
	store.Section("a").Set("y", "2")
	if got := string(store.Bytes()); got != "[a]\nx=1\ny=2\n\n[b]\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestAddAndAddCopy(t *testing.T) {
	store := mustParse(t, "[scummvm]\nversioninfo=1\n[lba-gb]\npath=lba\ngameid=lba\n")
	sec := store.AddCopy("lba", store.Section("lba-gb"))
	sec.Set("gameid", "lba")

	want := "[scummvm]\nversioninfo=1\n[lba-gb]\npath=lba\ngameid=lba\n\n[lba]\npath=lba\ngameid=lba\n"
	if got := string(store.Bytes()); got != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", got, want)
	}
}

func TestNewStoreSerializes(t *testing.T) {
	store := New()
	store.Add("scummvm").Set("versioninfo", "2.8.0")
	store.Add("hero").Set("path", "/lib/hero")
	want := "[scummvm]\nversioninfo=2.8.0\n\n[hero]\npath=/lib/hero\n"
	if got := string(store.Bytes()); got != want {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestDuplicateLabelsAndLookup(t *testing.T) {
	store := mustParse(t, "[a]\npath=/one\n[a]\npath=/two\n")
	if len(store.Sections()) != 2 {
		t.Fatalf("expected duplicate labels preserved")
	}
	if store.Section("a").Path() != "/one" {
		t.Fatalf("expected first section to win lookup")
	}
}

func TestDeleteAndMoveToFront(t *testing.T) {
	store := mustParse(t, "[b]\nk=1\nk=2\nj=3\n[scummvm]\nx=1\n")
	if !store.Section("b").Delete("k") {
		t.Fatal("expected key deleted")
	}
	store.MoveToFront(store.Section("scummvm"))
	want := "[scummvm]\nx=1\n[b]\nj=3\n"
	if got := string(store.Bytes()); got != want {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	store := mustParse(t, sampleIni)
	clone := store.Clone()
	clone.Section("hero").Set("path", "/elsewhere")
	clone.Section("hero").Rename("other")
	if store.Section("hero").Path() != "/lib/hero" {
		t.Fatal("clone mutation leaked into original")
	}
	if string(store.Bytes()) != sampleIni {
		t.Fatal("original bytes changed")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected fs.ErrNotExist and services.ErrNotFound, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scummvm.ini")
	store := mustParse(t, sampleIni)
	store.Section("hero-1").Rename("hero")
	if err := store.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := strings.Join(loaded.Labels(), ","); got != "scummvm,hero,hero,keymapper" {
		t.Fatalf("unexpected labels after reload %q", got)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n[hero]\npath=/lib/hero\n") {
		t.Fatalf("renamed header not written: %q", data)
	}
}
