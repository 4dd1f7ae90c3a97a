package reconcile

import (
	"sort"
	"strings"

	"scummsync/internal/inistore"
	"scummsync/internal/services"
)

// AllBases makes Unify collapse every dashed base in the store.
const AllBases = "_all_"

// UnifyResult describes one collapsed variant group.
type UnifyResult struct {
	Base    string
	Source  string
	Removed []string
}

// Changed reports whether the group was rewritten.
func (u UnifyResult) Changed() bool {
	return u.Source != u.Base || len(u.Removed) > 0
}

// Unify collapses the game sections labelled base or base-<variant> onto a
// single [base] section. The surviving entry is the first -gb or -en variant,
// otherwise the first match in store order; its gameid becomes base. With
// AllBases every label prefix before a dash is treated as a base. The
// defaults section is moved to the front afterwards.
func Unify(store *inistore.Store, base, defaultsSection string) ([]UnifyResult, error) {
	base = strings.TrimSpace(base)
	var results []UnifyResult

	if base == AllBases {
		for _, b := range dashedBases(store) {
			if group := variants(store, b); len(group) > 0 {
				results = append(results, collapse(store, b, group))
			}
		}
	} else {
		if base == "" {
			return nil, services.Wrap(services.ErrValidation, "uniq", "validate", "Game id required", nil)
		}
		if strings.Contains(base, "-") {
			return nil, services.Wrap(services.ErrValidation, "uniq", "validate",
				"Game id "+base+" may not contain dashes; pass the id without its variant", nil)
		}
		group := variants(store, base)
		if len(group) == 0 {
			return nil, services.Wrap(services.ErrNotFound, "uniq", "lookup", "No section ["+base+"] or ["+base+"-*] present", nil)
		}
		results = append(results, collapse(store, base, group))
	}

	if defaults := store.Section(defaultsSection); defaults != nil {
		store.MoveToFront(defaults)
	}
	return results, nil
}

func dashedBases(store *inistore.Store) []string {
	seen := make(map[string]struct{})
	for _, label := range store.Labels() {
		if prefix, _, ok := strings.Cut(label, "-"); ok && prefix != "" {
			seen[prefix] = struct{}{}
		}
	}
	bases := make([]string, 0, len(seen))
	for b := range seen {
		bases = append(bases, b)
	}
	sort.Strings(bases)
	return bases
}

func variants(store *inistore.Store, base string) []*inistore.Section {
	var group []*inistore.Section
	for _, sec := range store.GameSections() {
		label := sec.Label()
		if label == base || strings.HasPrefix(label, base+"-") {
			group = append(group, sec)
		}
	}
	return group
}

func collapse(store *inistore.Store, base string, group []*inistore.Section) UnifyResult {
	if len(group) == 1 && group[0].Label() == base {
		return UnifyResult{Base: base, Source: base}
	}
	source := defaultVariant(group)
	result := UnifyResult{Base: base, Source: source.Label()}
	for _, sec := range group {
		if sec == source {
			continue
		}
		result.Removed = append(result.Removed, sec.Label())
		store.Remove(sec)
	}
	source.Rename(base)
	source.Set(inistore.GameIDKey, base)
	return result
}

// defaultVariant prefers the English release when variants carry a language.
func defaultVariant(group []*inistore.Section) *inistore.Section {
	for _, sec := range group {
		label := sec.Label()
		if strings.HasSuffix(label, "-gb") || strings.HasSuffix(label, "-en") {
			return sec
		}
	}
	return group[0]
}
