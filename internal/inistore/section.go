package inistore

import (
	"strings"
)

type line struct {
	raw      string
	key      string
	value    string
	property bool
	dirty    bool
}

func (l line) render() string {
	if l.property && l.dirty {
		return l.key + "=" + l.value
	}
	return l.raw
}

// Property is one key=value pair.
type Property struct {
	Key   string
	Value string
}

// Section is one [label] block.
type Section struct {
	label   string
	header  string
	renamed bool
	lines   []line
}

// Label returns the section key.
func (s *Section) Label() string { return s.label }

// Rename changes the section key. Properties are untouched.
func (s *Section) Rename(label string) {
	if label == s.label {
		return
	}
	s.label = label
	s.renamed = true
}

// IsGame reports whether the section carries a path property.
func (s *Section) IsGame() bool {
	_, ok := s.Get(PathKey)
	return ok
}

// GameID returns the gameid property.
func (s *Section) GameID() string {
	v, _ := s.Get(GameIDKey)
	return v
}

// Path returns the raw path property.
func (s *Section) Path() string {
	v, _ := s.Get(PathKey)
	return v
}

// Get returns the value of the first property named key.
func (s *Section) Get(key string) (string, bool) {
	for _, ln := range s.lines {
		if ln.property && ln.key == key {
			return ln.value, true
		}
	}
	return "", false
}

// Set updates the first property named key, or appends it.
func (s *Section) Set(key, value string) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	for i := range s.lines {
		ln := &s.lines[i]
		if ln.property && ln.key == key {
			if ln.value != value {
				ln.value = value
				ln.dirty = true
			}
			return
		}
	}
	newLine := line{key: key, value: value, property: true, dirty: true}
	// Keep trailing blank lines after the new property.
	insert := len(s.lines)
	for insert > 0 && !s.lines[insert-1].property && strings.TrimSpace(s.lines[insert-1].raw) == "" {
		insert--
	}
	s.lines = append(s.lines, line{})
	copy(s.lines[insert+1:], s.lines[insert:])
	s.lines[insert] = newLine
}

// Delete removes every property named key. It reports whether any was found.
func (s *Section) Delete(key string) bool {
	kept := s.lines[:0]
	found := false
	for _, ln := range s.lines {
		if ln.property && ln.key == key {
			found = true
			continue
		}
		kept = append(kept, ln)
	}
	s.lines = kept
	return found
}

// Properties returns the section's properties in file order. Repeated keys
// appear once, with the first value.
func (s *Section) Properties() []Property {
	seen := make(map[string]struct{})
	var props []Property
	for _, ln := range s.lines {
		if !ln.property {
			continue
		}
		if _, dup := seen[ln.key]; dup {
			continue
		}
		seen[ln.key] = struct{}{}
		props = append(props, Property{Key: ln.key, Value: ln.value})
	}
	return props
}

func (s *Section) renderHeader() string {
	if s.renamed || s.header == "" {
		return "[" + s.label + "]"
	}
	return s.header
}

func (s *Section) clone() *Section {
	return &Section{
		label:   s.label,
		header:  s.header,
		renamed: s.renamed,
		lines:   append([]line(nil), s.lines...),
	}
}
