package hostapi

import "github.com/goagain/reglet-host/internal/permission"

// HostState is constructed fresh for every invocation and owned exclusively
// by it (spec.md §5 "No cross-plugin shared memory"). It carries exactly
// what a broker function needs to answer a capability-gated call: which
// plugin is calling and what it has been granted.
type HostState struct {
	PluginID string
	Granted  permission.Set
}
