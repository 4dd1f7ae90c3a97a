package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scummsync/internal/config"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile returns the content of path.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// WriteStore writes the native configuration store of cfg. Occurrences of
// "$LIB" are replaced with the library directory.
func WriteStore(t testing.TB, cfg *config.Config, content string) {
	t.Helper()
	WriteFile(t, cfg.Paths.ConfigFile, strings.ReplaceAll(content, "$LIB", cfg.Paths.LibraryDir))
}

// WriteMarker writes a marker file and its content directory in the library.
func WriteMarker(t testing.TB, cfg *config.Config, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(cfg.Paths.LibraryDir, name), 0o755); err != nil {
		t.Fatalf("mkdir content dir %s: %v", name, err)
	}
	WriteFile(t, filepath.Join(cfg.Paths.LibraryDir, name+cfg.Markers.Extension), content)
}

// MarkerPath returns the marker file location for name.
func MarkerPath(cfg *config.Config, name string) string {
	return filepath.Join(cfg.Paths.LibraryDir, name+cfg.Markers.Extension)
}
