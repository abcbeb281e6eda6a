package hookregistry

// capabilities is the finite, host-defined capability catalog (spec.md §3).
// A manifest's permissions.required/optional entries must each appear here;
// anything else is rejected at package-processing time before a plugin ever
// reaches the registry.
var capabilities = map[string]string{
	"post:read":          "Read published post content passed to action hooks.",
	"post:write":         "Call host functions that create or modify posts.",
	"post:list_category": "Call posts.list_categories and register the list_categories filter.",
	"user:read":          "Receive user lifecycle event payloads (created, login).",
	"user:write":         "Override authentication outcomes via filter_authenticate.",
	"ai:chat":            "Call ai.chat_completion.",
	"ai:list_models":     "Call ai.list_models.",
}

// IsValidCapability reports whether cap is a capability the host recognizes.
func IsValidCapability(cap string) bool {
	_, ok := capabilities[cap]
	return ok
}

// Capabilities returns the complete capability catalog, name -> description.
func Capabilities() map[string]string {
	return capabilities
}
