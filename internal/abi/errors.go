package abi

import "errors"

// Manifest-shape errors. ErrMalformed, ErrInvalidID and ErrInvalidVersion
// are returned by Manifest.ValidateShape and surfaced by internal/archive as
// ManifestError causes. ErrUnknownHook and ErrUnknownCapability are not
// returned by any function: internal/archive reports those cases with its
// own archive.ErrUnknownHook and archive.ErrUnknownCapability.
var (
	ErrMalformed       = errors.New("manifest malformed")
	ErrInvalidID       = errors.New("manifest package.id does not match the required pattern")
	ErrInvalidVersion  = errors.New("manifest package.version is not valid semver")
	ErrUnknownHook     = errors.New("manifest declares a hook unknown to the host hook registry")
	ErrUnknownCapability = errors.New("manifest requires a capability unknown to the host capability catalog")
)
