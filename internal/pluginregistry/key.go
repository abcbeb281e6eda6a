// Package pluginregistry is the in-memory catalog mapping hooks to plugins,
// and owns the install/enable/disable/uninstall lifecycle persisted through
// a store.Store (spec.md §4.4). It is grounded on the original host's
// registry.rs (original_source/core/src/plugin/registry.rs) — a
// RwLock-protected map of LoadedPlugin plus a parallel hook index — adapted
// to Go's sync.RWMutex and to the full policy surface spec.md adds
// (pending_review, approve_review, UpdateAnalysis).
package pluginregistry

// Key identifies one loaded plugin version, the same composite key the
// original host's HashMap<(id, version), LoadedPlugin> uses.
type Key struct {
	PluginID string
	Version  string
}
