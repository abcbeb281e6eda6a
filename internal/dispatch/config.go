package dispatch

import "time"

// DefaultTimeout is the per-invocation timeout applied when Config.HookTimeouts
// has no entry for a hook (spec.md §4.7: "default 5s, configurable per hook").
const DefaultTimeout = 5 * time.Second

// Config bundles the per-hook timeout overrides a Dispatcher consults before
// every invocation.
type Config struct {
	HookTimeouts map[string]time.Duration
}

func (c Config) timeoutFor(hook string) time.Duration {
	if d, ok := c.HookTimeouts[hook]; ok && d > 0 {
		return d
	}
	return DefaultTimeout
}
