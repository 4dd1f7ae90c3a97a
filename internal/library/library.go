// Package library maps between game content directories, their marker files
// and the path keys used to compare configuration store entries.
package library

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultMarkerExtension is used when a Root is built without an extension.
const DefaultMarkerExtension = ".svm"

// Root is a library directory holding one content directory and one marker
// file per game.
type Root struct {
	dir string
	ext string
}

// New returns a Root for dir. ext is the marker extension including the dot.
func New(dir, ext string) Root {
	if ext == "" {
		ext = DefaultMarkerExtension
	}
	return Root{dir: filepath.Clean(dir), ext: ext}
}

// Dir returns the cleaned library directory.
func (r Root) Dir() string { return r.dir }

// Extension returns the marker file extension.
func (r Root) Extension() string { return r.ext }

// ContentPath resolves a section's path property. Relative values are taken
// relative to the library root.
func (r Root) ContentPath(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return r.dir
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(r.dir, value)
}

// IsDirectChild reports whether path names an entry immediately inside the
// library root. The root itself is not a child.
func (r Root) IsDirectChild(path string) bool {
	path = filepath.Clean(path)
	if path == r.dir {
		return false
	}
	return filepath.Dir(path) == r.dir
}

// MarkerName returns the marker base name (without extension) for a content
// directory: its last path element.
func (r Root) MarkerName(contentPath string) string {
	return filepath.Base(filepath.Clean(contentPath))
}

// MarkerPath returns the marker file for name inside the root.
func (r Root) MarkerPath(name string) string {
	return filepath.Join(r.dir, name+r.ext)
}

// ContentDir returns the content directory a marker called name refers to.
func (r Root) ContentDir(name string) string {
	return filepath.Join(r.dir, name)
}

// BaseName reduces a launch argument to a marker name. It accepts a bare
// name, a marker file name or a path to either. The extension match is case
// sensitive, as in marker listing.
func (r Root) BaseName(arg string) string {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return ""
	}
	return strings.TrimSuffix(filepath.Base(arg), r.ext)
}

// NormalizeKey turns a content path into a comparison key: cleaned, NFC
// normalized, without a trailing separator.
func NormalizeKey(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	key := norm.NFC.String(filepath.Clean(path))
	if len(key) > 1 {
		key = strings.TrimRight(key, string(filepath.Separator))
	}
	return key
}

// suffixPattern is the engine's disambiguation rule: a label is suffixed with
// a dash and a decimal number when its id is already taken.
var suffixPattern = regexp.MustCompile(`^(.+)-([0-9]+)$`)

// SplitSuffix splits a disambiguated label into its base and numeric suffix.
// ok is false when label carries no suffix.
func SplitSuffix(label string) (base, suffix string, ok bool) {
	m := suffixPattern.FindStringSubmatch(label)
	if m == nil {
		return label, "", false
	}
	return m[1], m[2], true
}

// StripSuffix returns label without its disambiguation suffix.
func StripSuffix(label string) string {
	base, _, _ := SplitSuffix(label)
	return base
}
