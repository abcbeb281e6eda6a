package pluginregistry

import "errors"

var (
	// ErrAlreadyInstalled is returned by Install when plugin_id already has
	// a persisted record. spec.md §9 treats a colliding plugin_id as a hard
	// rejection; an upgrade path is explicitly out of scope (requires
	// Uninstall then Install).
	ErrAlreadyInstalled = errors.New("plugin already installed")

	// ErrNotInstalled is returned when an operation names a plugin_id with
	// no persisted record.
	ErrNotInstalled = errors.New("plugin not installed")

	// ErrInvalidLifecycleState is returned by Enable when the record is not
	// in a state Enable may act on (spec.md §4.4 enable() step 1: "must be
	// disabled or pending_review").
	ErrInvalidLifecycleState = errors.New("plugin is not in a state that can be enabled")
)
