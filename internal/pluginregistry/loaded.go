package pluginregistry

import (
	"github.com/goagain/reglet-host/internal/permission"
	"github.com/goagain/reglet-host/internal/sandbox"
)

// LoadedPlugin is the in-memory counterpart of a durable store.Record,
// present only while its version is enabled (spec.md §3 LoadedPlugin).
// Never mutated in place: a capability grant or a hook-set change always
// comes from a fresh enable(), which builds a new LoadedPlugin and replaces
// the map entry under the write lock.
type LoadedPlugin struct {
	Key                 Key
	Module              *sandbox.Module
	RegisteredHooks     []string
	GrantedCapabilities permission.Set
}
