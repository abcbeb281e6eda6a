package pluginregistry

// hookIndex maps a hook name to the ordered sequence of plugins registered
// for it, insertion order = load order (spec.md §3 HookIndex). Callers must
// hold the owning Registry's lock; hookIndex has no locking of its own.
type hookIndex struct {
	byHook map[string][]Key
}

func newHookIndex() *hookIndex {
	return &hookIndex{byHook: make(map[string][]Key)}
}

// add appends key to every hook in hooks, in the order given.
func (h *hookIndex) add(key Key, hooks []string) {
	for _, hook := range hooks {
		h.byHook[hook] = append(h.byHook[hook], key)
	}
}

// removeAll removes every entry for pluginID across all hooks, regardless
// of version, and drops any bucket left empty (spec.md §3 "empty buckets
// are dropped").
func (h *hookIndex) removeAll(pluginID string) {
	for hook, keys := range h.byHook {
		filtered := keys[:0]
		for _, k := range keys {
			if k.PluginID != pluginID {
				filtered = append(filtered, k)
			}
		}
		if len(filtered) == 0 {
			delete(h.byHook, hook)
		} else {
			h.byHook[hook] = filtered
		}
	}
}

// snapshot returns a copy of the plugin list registered for hook, safe for
// the caller to range over after releasing the registry's read lock (spec.md
// §4.7 dispatch step 1: "Snapshot the plugin list").
func (h *hookIndex) snapshot(hook string) []Key {
	keys := h.byHook[hook]
	if len(keys) == 0 {
		return nil
	}
	out := make([]Key, len(keys))
	copy(out, keys)
	return out
}
