// Package archive turns the opaque bytes of an uploaded plugin package into a
// verified (Manifest, bytecode, aux files) triple, or a typed rejection. It
// is the Go counterpart of the original host's RpkProcessor
// (original_source/core/src/rpk.rs), generalized to the full validation
// contract of spec.md §4.1: bounded streaming extraction, path-traversal and
// symlink rejection, and hook/capability membership checks against the live
// registries rather than just a manifest.toml presence check.
package archive

import "errors"

// PackageError causes — raised by ReadArchive while walking the ZIP
// container itself, before any TOML parsing happens.
var (
	ErrNotAZip       = errors.New("not a valid zip archive")
	ErrUnsafePath    = errors.New("entry path is absolute, contains a parent reference, or is a symlink")
	ErrCaseCollision = errors.New("entry name collides case-insensitively with another entry")
	ErrTooLarge      = errors.New("archive uncompressed size exceeds the configured limit")
)

// ManifestError causes — raised by ParseManifest.
var (
	ErrManifestUnreadable = errors.New("manifest.toml could not be decoded as TOML")
)

// ValidationError causes — raised by ValidatePackage once a Manifest parses
// cleanly but must still be checked against archive contents and the live
// hook/capability registries.
var (
	ErrMissingManifest  = errors.New("archive does not contain manifest.toml at its root")
	ErrMissingBytecode  = errors.New("archive does not contain plugin.wasm at its root")
	// ErrDuplicateEntry is not returned by ValidatePackage: a repeated entry
	// name already fails ReadArchive with ErrCaseCollision.
	ErrDuplicateEntry   = errors.New("archive contains manifest.toml or plugin.wasm more than once")
	ErrIDMismatch       = errors.New("manifest package.id does not match the expected plugin id")
	ErrUnknownHook      = errors.New("manifest declares a hook the host does not define")
	ErrUnknownCapability = errors.New("manifest requires a capability the host does not define")
)
