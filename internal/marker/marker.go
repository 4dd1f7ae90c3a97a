// Package marker manages the per-game marker files kept next to each content
// directory in the library root. A marker holds a single game id, or nothing
// when resolution was deferred. A missing marker and an empty one are
// different states.
package marker

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"scummsync/internal/library"
)

// State describes a marker file.
type State int

const (
	// Absent means no marker file exists.
	Absent State = iota
	// Empty means the file exists but holds no id.
	Empty
	// Set means the file holds an id.
	Set
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Empty:
		return "empty"
	case Set:
		return "set"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Marker is the observed content of one marker file.
type Marker struct {
	Name  string
	Path  string
	State State
	ID    string
}

// Snapshot maps marker names to their content.
type Snapshot map[string]Marker

// Get returns the marker called name, reporting Absent when missing.
func (s Snapshot) Get(name string) Marker {
	if m, ok := s[name]; ok {
		return m
	}
	return Marker{Name: name, State: Absent}
}

// Names returns the marker names in sorted order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IDs returns every non-empty marker id keyed by id with the names claiming it.
func (s Snapshot) IDs() map[string][]string {
	ids := make(map[string][]string)
	for _, name := range s.Names() {
		m := s[name]
		if m.State == Set {
			ids[m.ID] = append(ids[m.ID], name)
		}
	}
	return ids
}

// Store reads and writes markers under a library root.
type Store struct {
	root library.Root
}

// NewStore returns a Store rooted at root.
func NewStore(root library.Root) *Store {
	return &Store{root: root}
}

// Root returns the library root the store operates on.
func (s *Store) Root() library.Root { return s.root }

// Read returns the marker called name.
func (s *Store) Read(name string) (Marker, error) {
	path := s.root.MarkerPath(name)
	m := Marker{Name: name, Path: path, State: Absent}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, nil
		}
		return m, fmt.Errorf("read marker %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	m.State = Empty
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			m.State = Set
			m.ID = id
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return m, fmt.Errorf("read marker %s: %w", path, err)
	}
	return m, nil
}

// Write creates or overwrites the marker called name with id.
func (s *Store) Write(name, id string) error {
	path := s.root.MarkerPath(name)
	content := ""
	if id = strings.TrimSpace(id); id != "" {
		content = id + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write marker %s: %w", path, err)
	}
	return nil
}

// Delete removes the marker called name. A missing marker is not an error.
func (s *Store) Delete(name string) error {
	path := s.root.MarkerPath(name)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete marker %s: %w", path, err)
	}
	return nil
}

// ListAll reads every marker file directly inside the library root.
func (s *Store) ListAll() (Snapshot, error) {
	entries, err := os.ReadDir(s.root.Dir())
	if err != nil {
		return nil, fmt.Errorf("list markers in %s: %w", s.root.Dir(), err)
	}
	snap := make(Snapshot)
	ext := s.root.Extension()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ext) {
			continue
		}
		base := strings.TrimSuffix(name, ext)
		if base == "" || strings.HasPrefix(base, ".") {
			continue
		}
		m, err := s.Read(base)
		if err != nil {
			return nil, err
		}
		snap[base] = m
	}
	return snap, nil
}
