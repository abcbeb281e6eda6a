// Package permission models a plugin's granted-capability set and the
// derivation/audit rules spec.md §3 and §4.2 place on it: what a manifest
// requests, what an operator has actually granted, and whether an install or
// upgrade needs review before it may run. The pure "what is granted" view
// mirrors the original host's permissions broker
// (original_source/core/src/plugin/host/permissions.rs), which is nothing
// more than a lookup against a granted set.
package permission

import "sort"

// Set is an ordered, deduplicated granted-capability set. The zero value is
// an empty set.
type Set struct {
	m map[string]struct{}
}

// NewSet builds a Set from a capability slice, deduplicating as it goes.
func NewSet(caps ...string) Set {
	s := Set{m: make(map[string]struct{}, len(caps))}
	for _, c := range caps {
		s.m[c] = struct{}{}
	}
	return s
}

// Granted reports whether cap is present in the set.
func (s Set) Granted(cap string) bool {
	if s.m == nil {
		return false
	}
	_, ok := s.m[cap]
	return ok
}

// List returns the granted capabilities in lexicographic order, matching
// the original's Vec<String> collected from a HashSet (order there is
// incidental; here it is made deterministic for stable ABI responses and
// stable test assertions).
func (s Set) List() []string {
	out := make([]string, 0, len(s.m))
	for c := range s.m {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether every capability in required is present in s —
// the "granted ⊇ required" check spec.md's enable() performs.
func (s Set) Contains(required []string) bool {
	for _, r := range required {
		if !s.Granted(r) {
			return false
		}
	}
	return true
}

// Missing returns the subset of required not present in s, in the order
// required lists them. Used to populate EnableResult.Missing (spec.md §4.4
// enable() step 2).
func (s Set) Missing(required []string) []string {
	var out []string
	for _, r := range required {
		if !s.Granted(r) {
			out = append(out, r)
		}
	}
	return out
}

// Union returns a new Set containing every capability in s plus extra —
// the operation approve_review performs (spec.md §4.4: "unions granted_caps
// into record").
func (s Set) Union(extra []string) Set {
	out := NewSet(s.List()...)
	for _, c := range extra {
		out.m[c] = struct{}{}
	}
	return out
}

// AsMap exposes the set as a map for callers that need O(1) membership
// tests without going through Granted repeatedly, e.g. hookregistry.Validate.
func (s Set) AsMap() map[string]struct{} {
	return s.m
}
