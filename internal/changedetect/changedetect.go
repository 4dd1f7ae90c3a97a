// Package changedetect fingerprints the section headers of a configuration
// store so a launch can skip reconciliation when the engine made no edits.
package changedetect

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"scummsync/internal/inistore"
)

// Digest is an opaque hex fingerprint. The zero value means "unknown" and
// always differs from a real fingerprint.
type Digest string

// Fingerprint hashes the sorted "[label]" header lines of store. Reordering
// sections leaves the digest unchanged; adding, removing or renaming one
// changes it.
func Fingerprint(store *inistore.Store) Digest {
	if store == nil {
		return ""
	}
	headers := make([]string, 0, len(store.Sections()))
	for _, label := range store.Labels() {
		headers = append(headers, "["+label+"]")
	}
	sort.Strings(headers)

	h := sha256.New()
	for _, header := range headers {
		h.Write([]byte(header))
		h.Write([]byte{'\n'})
	}
	return Digest(hex.EncodeToString(h.Sum(nil)))
}

// HasChanged reports whether two fingerprints differ. An unknown fingerprint
// on either side counts as a change.
func HasChanged(before, after Digest) bool {
	if before == "" || after == "" {
		return true
	}
	return before != after
}
