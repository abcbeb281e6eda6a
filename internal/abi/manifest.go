// Package abi defines the wire contract shared between the host and a
// plugin's WASM module: the manifest shape, the event payloads exchanged
// over the filter/action pipelines, and the result envelope a plugin
// returns from a filter invocation.
package abi

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// idPattern matches spec.md §3: reverse-DNS-like plugin identifiers.
var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,127}$`)

// PackageInfo is the `[package]` table of manifest.toml.
type PackageInfo struct {
	ID          string `toml:"id" json:"id"`
	Name        string `toml:"name" json:"name"`
	Version     string `toml:"version" json:"version"`
	Description string `toml:"description" json:"description,omitempty"`
	Author      string `toml:"author" json:"author,omitempty"`
}

// PermissionsConfig is the `[permissions]` table. Optional supplements the
// original manifest's `optional_permissions` map (SPEC_FULL §C.2): capabilities
// a plugin may use if granted, but that never gate hook registration.
type PermissionsConfig struct {
	Required []string `toml:"required" json:"required"`
	Optional []string `toml:"optional" json:"optional,omitempty"`
}

// HooksConfig is the `[hooks]` table.
type HooksConfig struct {
	Registered []string `toml:"registered" json:"registered"`
}

// Manifest is the parsed, not-yet-validated contents of manifest.toml.
type Manifest struct {
	Package     PackageInfo       `toml:"package" json:"package"`
	Permissions PermissionsConfig `toml:"permissions" json:"permissions"`
	Hooks       HooksConfig       `toml:"hooks" json:"hooks"`
}

// ValidateShape enforces the structural invariants of spec.md §3 that do not
// require consulting the host's hook registry or capability catalog: a
// well-formed id and a parseable SemVer version. Hook/capability membership
// is checked by the caller (internal/archive) against the live registries.
func (m Manifest) ValidateShape() error {
	if !idPattern.MatchString(m.Package.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, m.Package.ID)
	}
	if m.Package.Name == "" {
		return fmt.Errorf("%w: package.name is required", ErrMalformed)
	}
	if _, err := semver.NewVersion(m.Package.Version); err != nil {
		return fmt.Errorf("%w: package.version %q: %v", ErrInvalidVersion, m.Package.Version, err)
	}
	if dup := firstDuplicate(m.Permissions.Required); dup != "" {
		return fmt.Errorf("%w: permissions.required contains %q twice", ErrMalformed, dup)
	}
	if dup := firstDuplicate(m.Hooks.Registered); dup != "" {
		return fmt.Errorf("%w: hooks.registered contains %q twice", ErrMalformed, dup)
	}
	return nil
}

func firstDuplicate(items []string) string {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			return item
		}
		seen[item] = struct{}{}
	}
	return ""
}
