package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/goagain/reglet-host/internal/abi"
)

const (
	manifestEntry = "manifest.toml"
	bytecodeEntry = "plugin.wasm"

	// DefaultMaxUncompressedSize bounds zip-bomb style archives absent an
	// explicit configuration value (spec.md §4.1, §8 "TooLarge" boundary).
	DefaultMaxUncompressedSize int64 = 64 << 20 // 64 MiB
)

// Package is the verified result of reading and validating a plugin
// archive: a parsed manifest plus every file the archive carried, keyed by
// its root-relative entry name.
type Package struct {
	Manifest abi.Manifest
	Bytecode []byte
	Files    map[string][]byte // includes manifest.toml and plugin.wasm
}

// ReadArchive parses ZIP-format bytes in a bounded, streaming manner,
// rejecting unsafe entries before any content is retained. maxUncompressed
// of 0 selects DefaultMaxUncompressedSize.
func ReadArchive(data []byte, maxUncompressed int64) (map[string][]byte, error) {
	if maxUncompressed <= 0 {
		maxUncompressed = DefaultMaxUncompressedSize
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAZip, err)
	}

	files := make(map[string][]byte, len(zr.File))
	seenLower := make(map[string]string, len(zr.File))
	var totalUncompressed int64

	for _, entry := range zr.File {
		name := entry.Name
		if err := checkSafePath(name); err != nil {
			return nil, err
		}
		if entry.Mode()&fs.ModeSymlink != 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnsafePath, name)
		}
		if strings.HasSuffix(name, "/") {
			continue // directory entry, nothing to extract
		}

		lower := strings.ToLower(name)
		if prior, ok := seenLower[lower]; ok {
			return nil, fmt.Errorf("%w: %q and %q", ErrCaseCollision, prior, name)
		}
		seenLower[lower] = name

		totalUncompressed += int64(entry.UncompressedSize64)
		if totalUncompressed > maxUncompressed {
			return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, maxUncompressed)
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("opening entry %q: %w", name, err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxUncompressed+1))
		closeErr := rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading entry %q: %w", name, err)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("closing entry %q: %w", name, closeErr)
		}
		if int64(len(content)) > maxUncompressed {
			return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, maxUncompressed)
		}
		files[name] = content
	}

	return files, nil
}

// checkSafePath rejects absolute paths, parent-directory references, and
// anything that would not stay rooted under an extraction directory.
func checkSafePath(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty entry name", ErrUnsafePath)
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("%w: %q", ErrUnsafePath, name)
		}
	}
	return nil
}

// ParseManifest decodes raw TOML bytes and enforces the structural shape
// invariants of abi.Manifest.ValidateShape. Unknown top-level keys are
// tolerated (go-toml/v2 ignores fields not present in the destination
// struct) per spec.md §4.1's "rejects unknown top-level keys with a
// warning but extracts recognized subtree" — the warning is the caller's
// responsibility once it has a logger in scope.
func ParseManifest(raw []byte) (abi.Manifest, error) {
	var m abi.Manifest
	if err := toml.Unmarshal(raw, &m); err != nil {
		return abi.Manifest{}, fmt.Errorf("%w: %v", ErrManifestUnreadable, err)
	}
	if err := m.ValidateShape(); err != nil {
		return abi.Manifest{}, err
	}
	return m, nil
}

// HookValidator and CapabilityValidator let ValidatePackage check hook and
// capability membership without importing internal/hookregistry directly,
// keeping archive free of a dependency on the registry package (avoided
// purely to keep the dependency graph a DAG with store/registry sitting
// above archive, not because of any behavioral need).
type (
	HookValidator       func(name string) bool
	CapabilityValidator func(name string) bool
)

// ValidatePackage applies spec.md §4.1's validate_package rules: archive
// root layout, optional plugin-id binding, and hook/capability membership
// against the caller-supplied validators (backed by internal/hookregistry
// in production, by fakes in tests).
func ValidatePackage(files map[string][]byte, expectedID string, validHook HookValidator, validCapability CapabilityValidator) (Package, error) {
	manifestRaw, ok := files[manifestEntry]
	if !ok {
		return Package{}, ErrMissingManifest
	}
	bytecode, ok := files[bytecodeEntry]
	if !ok {
		return Package{}, ErrMissingBytecode
	}

	manifest, err := ParseManifest(manifestRaw)
	if err != nil {
		return Package{}, err
	}

	if expectedID != "" && manifest.Package.ID != expectedID {
		return Package{}, fmt.Errorf("%w: manifest declares %q, expected %q", ErrIDMismatch, manifest.Package.ID, expectedID)
	}

	for _, hook := range manifest.Hooks.Registered {
		if !validHook(hook) {
			return Package{}, fmt.Errorf("%w: %q", ErrUnknownHook, hook)
		}
	}
	for _, cap := range allCapabilities(manifest) {
		if !validCapability(cap) {
			return Package{}, fmt.Errorf("%w: %q", ErrUnknownCapability, cap)
		}
	}

	return Package{Manifest: manifest, Bytecode: bytecode, Files: files}, nil
}

func allCapabilities(m abi.Manifest) []string {
	out := make([]string, 0, len(m.Permissions.Required)+len(m.Permissions.Optional))
	out = append(out, m.Permissions.Required...)
	out = append(out, m.Permissions.Optional...)
	return out
}
