package hookregistry

import (
	"errors"
	"fmt"
)

// ErrUnknownHook means a manifest named a hook this host version does not
// define. Validate returns it; when it does so at load time, the plugin
// registry drops that hook from registration and logs it. Install never gets
// that far with such a manifest: archive.ValidatePackage already rejects it.
var ErrUnknownHook = errors.New("unknown hook")

// SecurityViolation reports that a plugin tried to register a hook whose
// required capability it was not granted. This mirrors the original host's
// AuditError::SecurityViolation (original_source/core/src/plugin/hook_registry.rs)
// translated into a Go error value callers can inspect with errors.As.
type SecurityViolation struct {
	PluginID string
	Hook     string
	Required string
}

func (e *SecurityViolation) Error() string {
	return fmt.Sprintf("plugin %q may not register hook %q: capability %q was not granted", e.PluginID, e.Hook, e.Required)
}

// Validate applies the security-gate policy rule (spec.md §4.2) to one
// candidate hook registration: the hook must be known, and if it requires a
// capability, granted must contain it. granted is treated as a set.
func Validate(pluginID, hook string, granted map[string]struct{}) error {
	def, ok := Get(hook)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHook, hook)
	}
	if !def.HasCapabilityRequirement() {
		return nil
	}
	if _, has := granted[def.RequiredCapability]; has {
		return nil
	}
	return &SecurityViolation{PluginID: pluginID, Hook: hook, Required: def.RequiredCapability}
}
