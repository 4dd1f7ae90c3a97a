package library

import (
	"path/filepath"
	"testing"
)

func TestContentPath(t *testing.T) {
	root := New("/lib/", "")
	tests := []struct {
		in, want string
	}{
		{"/lib/hero", "/lib/hero"},
		{"/lib/hero/", "/lib/hero"},
		{"hero", "/lib/hero"},
		{"", "/lib"},
		{"/other/demo", "/other/demo"},
	}
	for _, tt := range tests {
		if got := root.ContentPath(tt.in); got != tt.want {
			t.Fatalf("ContentPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsDirectChild(t *testing.T) {
	root := New("/lib", ".svm")
	tests := []struct {
		path string
		want bool
	}{
		{"/lib/hero", true},
		{"/lib/hero/", true},
		{"/lib", false},
		{"/lib/hero/disk1", false},
		{"/library/hero", false},
		{"/usr/share/scummvm/demo", false},
		{"/lib/../etc", false},
	}
	for _, tt := range tests {
		if got := root.IsDirectChild(tt.path); got != tt.want {
			t.Fatalf("IsDirectChild(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMarkerPaths(t *testing.T) {
	root := New("/lib", ".svm")
	if got := root.MarkerName("/lib/Monkey Island/"); got != "Monkey Island" {
		t.Fatalf("unexpected marker name %q", got)
	}
	if got := root.MarkerPath("hero"); got != filepath.Join("/lib", "hero.svm") {
		t.Fatalf("unexpected marker path %q", got)
	}
	if got := root.ContentDir("hero"); got != "/lib/hero" {
		t.Fatalf("unexpected content dir %q", got)
	}
}

func TestBaseName(t *testing.T) {
	root := New("/lib", ".svm")
	tests := map[string]string{
		"hero":                 "hero",
		"hero.svm":             "hero",
		"/lib/hero.svm":        "hero",
		"/lib/HERO.SVM":        "HERO.SVM",
		"/somewhere/else/hero": "hero",
		"  ":                   "",
	}
	for in, want := range tests {
		if got := root.BaseName(in); got != want {
			t.Fatalf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	decomposed := "/lib/Cafe\u0301"
	composed := "/lib/Caf\u00e9"
	if NormalizeKey(decomposed) != NormalizeKey(composed) {
		t.Fatal("expected NFC normalization to unify keys")
	}
	if NormalizeKey("/lib/hero/") != "/lib/hero" {
		t.Fatalf("expected trailing slash stripped, got %q", NormalizeKey("/lib/hero/"))
	}
	if NormalizeKey("/lib//hero/./") != "/lib/hero" {
		t.Fatalf("expected cleaned path, got %q", NormalizeKey("/lib//hero/./"))
	}
	if NormalizeKey("/") != "/" {
		t.Fatalf("expected root preserved, got %q", NormalizeKey("/"))
	}
}

func TestSplitSuffix(t *testing.T) {
	tests := []struct {
		label, base, suffix string
		ok                  bool
	}{
		{"sword-2", "sword", "2", true},
		{"hero-1", "hero", "1", true},
		{"monkey2-gb-10", "monkey2-gb", "10", true},
		{"monkey2", "monkey2", "", false},
		{"queen-gb", "queen-gb", "", false},
		{"-3", "-3", "", false},
	}
	for _, tt := range tests {
		base, suffix, ok := SplitSuffix(tt.label)
		if base != tt.base || suffix != tt.suffix || ok != tt.ok {
			t.Fatalf("SplitSuffix(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.label, base, suffix, ok, tt.base, tt.suffix, tt.ok)
		}
	}
	if StripSuffix("sword-2") != "sword" {
		t.Fatal("StripSuffix did not remove suffix")
	}
}
