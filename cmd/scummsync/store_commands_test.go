package main

import (
	"path/filepath"
	"strings"
	"testing"

	"scummsync/internal/testsupport"
)

func TestMarkersCreate(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteStore(t, env.cfg, `[scummvm]

[monkey]
path=$LIB/monkey
gameid=monkey

[monkey-1]
path=$LIB/monkey
gameid=monkey

[sky]
path=sky
gameid=sky
`)

	out, _, err := runCLI(t, env, "markers", "create")
	if err != nil {
		t.Fatalf("markers create: %v", err)
	}
	requireContains(t, out, "Created 2 marker files.")
	if got := testsupport.ReadFile(t, testsupport.MarkerPath(env.cfg, "sky")); got != "sky\n" {
		t.Fatalf("unexpected sky marker %q", got)
	}

	out, _, err = runCLI(t, env, "markers", "create")
	if err != nil {
		t.Fatalf("second markers create: %v", err)
	}
	requireContains(t, out, "Created 0 marker files.")
}

func TestUniqCollapsesVariants(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteStore(t, env.cfg, `[tlj-win]
path=$LIB/tlj
gameid=tlj-win

[scummvm]
gfx_mode=2x

[tlj-gb]
path=$LIB/tlj-gb
gameid=tlj-gb
`)

	out, _, err := runCLI(t, env, "uniq", "tlj")
	if err != nil {
		t.Fatalf("uniq: %v", err)
	}
	requireContains(t, out, "[tlj] <- [tlj-gb]")

	content := testsupport.ReadFile(t, env.cfg.Paths.ConfigFile)
	if !strings.HasPrefix(content, "[scummvm]") {
		t.Fatalf("expected defaults section first:\n%s", content)
	}
	requireContains(t, content, "gameid=tlj\n")
	if strings.Contains(content, "[tlj-win]") {
		t.Fatalf("expected variant removed:\n%s", content)
	}
	requireContains(t, testsupport.ReadFile(t, env.cfg.Paths.ConfigFile+".bak"), "[tlj-win]")

	out, _, err = runCLI(t, env, "checkentry", "tlj")
	if err != nil {
		t.Fatalf("checkentry: %v", err)
	}
	if strings.TrimSpace(out) != "present" {
		t.Fatalf("expected present, got %q", out)
	}
}

func TestUniqRejectsDashedBase(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteStore(t, env.cfg, "[tlj-win]\npath=$LIB/tlj\ngameid=tlj\n")
	if _, _, err := runCLI(t, env, "uniq", "tlj-win"); err == nil {
		t.Fatal("expected an error for a dashed base")
	}
}

func TestCopyEntryToLibretro(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteStore(t, env.cfg, "[scummvm]\n\n[dig]\npath=dig\ngameid=dig\n")

	out, _, err := runCLI(t, env, "copyentry", "dig")
	if err != nil {
		t.Fatalf("copyentry: %v", err)
	}
	requireContains(t, out, "Section [dig] written")
	requireContains(t, testsupport.ReadFile(t, env.cfg.Paths.LibretroConfigFile),
		"path="+filepath.Join(env.cfg.Paths.LibraryDir, "dig"))

	if _, _, err := runCLI(t, env, "copyentry", "dig"); err == nil {
		t.Fatal("expected copyentry to refuse an existing section")
	}
	if _, _, err := runCLI(t, env, "copyentry", "dig", "--force"); err != nil {
		t.Fatalf("copyentry --force: %v", err)
	}

	out, _, err = runCLI(t, env, "checkentry", "dig", "--ini", "libretro")
	if err != nil {
		t.Fatalf("checkentry: %v", err)
	}
	if strings.TrimSpace(out) != "present" {
		t.Fatalf("expected present, got %q", out)
	}
}

func TestCheckEntryAbsentWithoutStore(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "checkentry", "sky")
	if err != nil {
		t.Fatalf("checkentry: %v", err)
	}
	if strings.TrimSpace(out) != "absent" {
		t.Fatalf("expected absent, got %q", out)
	}
}

func TestFindSection(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteStore(t, env.cfg, `[comi]
path=$LIB/comi
gameid=comi

[comi-1]
path=$LIB/comi/
gameid=comi

[sky]
path=$LIB/sky
gameid=sky
`)
	out, _, err := runCLI(t, env, "findsection", "comi")
	if err != nil {
		t.Fatalf("findsection: %v", err)
	}
	if strings.TrimSpace(out) != "comi;comi-1" {
		t.Fatalf("unexpected output %q", out)
	}
}
