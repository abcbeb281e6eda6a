package hostapi

import "github.com/goagain/reglet-host/internal/permission"

// PermissionsBroker backs the plugin-facing "permissions" import: list(),
// granted(cap). No capability is required — it is a pure view onto the
// invocation's granted-capability set, exactly as the original host's
// permissions.rs is nothing more than a lookup against granted_permissions.
type PermissionsBroker struct{}

// List returns every capability granted to the calling plugin, sorted for
// a deterministic ABI response.
func (PermissionsBroker) List(granted permission.Set) []string {
	return granted.List()
}

// Granted reports whether cap is in the calling plugin's granted set.
func (PermissionsBroker) Granted(granted permission.Set, cap string) bool {
	return granted.Granted(cap)
}
