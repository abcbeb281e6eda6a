package pluginregistry

// Config bundles the on-disk layout and resource limits a Registry needs,
// all of which are meant to be loaded from internal/config (spec.md §6.5).
type Config struct {
	// InstallDir holds the canonical archive copy,
	// <InstallDir>/<plugin_id>-<version>.rpk.
	InstallDir string
	// CacheDir holds extraction scratch, safe to delete and regenerated on
	// demand.
	CacheDir string
	// MaxUncompressedSize bounds archive.ReadArchive's zip-bomb guard. 0
	// selects archive.DefaultMaxUncompressedSize.
	MaxUncompressedSize int64
	// MaxConcurrentLoads bounds how many plugins LoadAllEnabled compiles at
	// once at startup (spec.md §9's action-hook backpressure note applies
	// the same shape to startup loading).
	MaxConcurrentLoads int
}
