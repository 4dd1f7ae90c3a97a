package inistore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"scummsync/internal/fileutil"
	"scummsync/internal/services"
)

// ErrNotFound reports a missing configuration file. It also matches
// services.ErrNotFound and fs.ErrNotExist.
var ErrNotFound = fmt.Errorf("configuration store %w (%w)", services.ErrNotFound, fs.ErrNotExist)

// PathKey is the property naming a game's content directory. Sections
// carrying it are game sections.
const PathKey = "path"

// GameIDKey is the property holding a section's canonical id.
const GameIDKey = "gameid"

// Store is an ordered, in-memory configuration file.
type Store struct {
	preamble        []line
	sections        []*Section
	trailingNewline bool
}

// New returns an empty store.
func New() *Store {
	return &Store{trailingNewline: true}
}

// Load reads and parses the file at path.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, services.Wrap(services.ErrConfiguration, "inistore", "open", "Failed to open configuration store "+path, err)
	}
	defer f.Close()
	store, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return store, nil
}

// Parse reads a configuration file. Malformed lines are kept, never rejected;
// the only failure is a read error.
func Parse(r io.Reader) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	store := &Store{}
	if len(data) == 0 {
		store.trailingNewline = true
		return store, nil
	}
	store.trailingNewline = bytes.HasSuffix(data, []byte("\n"))

	text := string(data)
	if store.trailingNewline {
		text = text[:len(text)-1]
	}
	var current *Section
	for _, raw := range strings.Split(text, "\n") {
		if label, ok := parseHeader(raw); ok {
			current = &Section{label: label, header: raw}
			store.sections = append(store.sections, current)
			continue
		}
		ln := parseLine(raw)
		if current == nil {
			store.preamble = append(store.preamble, ln)
			continue
		}
		current.lines = append(current.lines, ln)
	}
	return store, nil
}

func parseHeader(raw string) (string, bool) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
	if len(trimmed) < 3 || trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return "", false
	}
	label := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if label == "" {
		return "", false
	}
	return label, true
}

func parseLine(raw string) line {
	text := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
	if text == "" || text[0] == '#' || text[0] == ';' {
		return line{raw: raw}
	}
	idx := strings.IndexByte(text, '=')
	if idx <= 0 {
		return line{raw: raw}
	}
	key := strings.TrimSpace(text[:idx])
	if key == "" {
		return line{raw: raw}
	}
	return line{raw: raw, key: key, value: strings.TrimSpace(text[idx+1:]), property: true}
}

// Bytes serializes the store.
func (s *Store) Bytes() []byte {
	var buf bytes.Buffer
	var lines []string
	for _, ln := range s.preamble {
		lines = append(lines, ln.render())
	}
	for _, sec := range s.sections {
		lines = append(lines, sec.renderHeader())
		for _, ln := range sec.lines {
			lines = append(lines, ln.render())
		}
	}
	buf.WriteString(strings.Join(lines, "\n"))
	if len(lines) > 0 && s.trailingNewline {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// WriteTo writes the serialized store to w.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s.Bytes())
	return int64(n), err
}

// Save writes the store to path atomically.
func (s *Store) Save(path string) error {
	if err := fileutil.WriteFileAtomic(path, s.Bytes(), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "inistore", "save", "Failed to write configuration store "+path, err)
	}
	return nil
}

// Clone returns a deep copy.
func (s *Store) Clone() *Store {
	clone := &Store{
		preamble:        append([]line(nil), s.preamble...),
		trailingNewline: s.trailingNewline,
	}
	for _, sec := range s.sections {
		clone.sections = append(clone.sections, sec.clone())
	}
	return clone
}

// Sections returns every section in file order.
func (s *Store) Sections() []*Section {
	return append([]*Section(nil), s.sections...)
}

// Labels returns every section label in file order, duplicates included.
func (s *Store) Labels() []string {
	labels := make([]string, 0, len(s.sections))
	for _, sec := range s.sections {
		labels = append(labels, sec.label)
	}
	return labels
}

// GameSections returns the sections that carry a path property.
func (s *Store) GameSections() []*Section {
	var out []*Section
	for _, sec := range s.sections {
		if sec.IsGame() {
			out = append(out, sec)
		}
	}
	return out
}

// Section returns the first section labelled label, or nil.
func (s *Store) Section(label string) *Section {
	for _, sec := range s.sections {
		if sec.label == label {
			return sec
		}
	}
	return nil
}

// Has reports whether a section labelled label exists.
func (s *Store) Has(label string) bool {
	return s.Section(label) != nil
}

// Add appends a new empty section. Duplicate labels are allowed.
func (s *Store) Add(label string) *Section {
	s.separateTail()
	sec := &Section{label: label, renamed: true}
	s.sections = append(s.sections, sec)
	return sec
}

// AddCopy appends a copy of src under label with all of src's properties.
// Comments and blank lines inside src are not copied.
func (s *Store) AddCopy(label string, src *Section) *Section {
	sec := s.Add(label)
	for _, p := range src.Properties() {
		sec.Set(p.Key, p.Value)
	}
	return sec
}

// Remove deletes sec from the store. It reports whether sec was present.
func (s *Store) Remove(sec *Section) bool {
	for i, candidate := range s.sections {
		if candidate == sec {
			s.sections = append(s.sections[:i], s.sections[i+1:]...)
			return true
		}
	}
	return false
}

// MoveToFront moves sec to the first position. It reports whether sec was
// present.
func (s *Store) MoveToFront(sec *Section) bool {
	for i, candidate := range s.sections {
		if candidate != sec {
			continue
		}
		if i == 0 {
			return true
		}
		copy(s.sections[1:i+1], s.sections[:i])
		s.sections[0] = sec
		return true
	}
	return false
}

// separateTail appends a blank line to the last section so a new header does
// not butt against its final property.
func (s *Store) separateTail() {
	if len(s.sections) == 0 {
		return
	}
	last := s.sections[len(s.sections)-1]
	if n := len(last.lines); n > 0 && strings.TrimSpace(last.lines[n-1].raw) == "" && !last.lines[n-1].property {
		return
	}
	last.lines = append(last.lines, line{})
	s.trailingNewline = true
}
