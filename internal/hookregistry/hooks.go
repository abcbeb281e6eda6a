// Package hookregistry is the host's single source of truth for which hooks
// exist, what each one costs in capability, and its dispatch kind (spec.md
// §4.2). It also owns the capability catalog (spec.md §3): the finite list
// of capability strings a manifest may request.
//
// Both maps are immutable process-wide singletons (spec.md §9 "Global
// mutable state") — adding a hook or a capability is a host release, never a
// runtime operation, mirroring the original Rust host's
// `HookRegistry::get_hook_definitions()` (original_source/core/src/plugin/hook_registry.rs),
// which is likewise a fixed, compiled-in map consulted on every install.
package hookregistry

import "github.com/goagain/reglet-host/internal/abi"

// HookDef is the host's declaration of one extension point.
type HookDef struct {
	Name                string
	RequiredCapability  string // "" means no capability is required
	Kind                abi.HookKind
	Description         string
}

// HasCapabilityRequirement reports whether registering this hook requires a
// granted capability at all.
func (d HookDef) HasCapabilityRequirement() bool {
	return d.RequiredCapability != ""
}

// hooks is the Host Side Truth: name -> definition. Declared once at package
// init and never mutated.
var hooks = map[string]HookDef{
	"post_published_filter": {
		Name:        "post_published_filter",
		Kind:        abi.KindFilter,
		Description: "Fires before a post's publish response is returned; plugins may rewrite title/content/category.",
	},
	"action_post_published": {
		Name:               "action_post_published",
		RequiredCapability: "post:read",
		Kind:               abi.KindAction,
		Description:        "Fires after a post is published; receives the full post content as a read-only notification.",
	},
	"list_categories": {
		Name:               "list_categories",
		RequiredCapability: "post:list_category",
		Kind:               abi.KindFilter,
		Description:        "Allows a plugin to adjust the category list before it is returned to the caller.",
	},
	"action_user_created": {
		Name:               "action_user_created",
		RequiredCapability: "user:read",
		Kind:               abi.KindAction,
		Description:        "Fires when a new user account is created.",
	},
	"action_user_login": {
		Name:               "action_user_login",
		RequiredCapability: "user:read",
		Kind:               abi.KindAction,
		Description:        "Fires when a user successfully logs in.",
	},
	"filter_authenticate": {
		Name:               "filter_authenticate",
		RequiredCapability: "user:write",
		Kind:               abi.KindFilter,
		Description:        "Allows a plugin to override the outcome of an authentication attempt.",
	},
	"action_system_startup": {
		Name:        "action_system_startup",
		Kind:        abi.KindAction,
		Description: "Fires once when the host finishes starting up. Carries no sensitive data.",
	},
	"action_system_shutdown": {
		Name:        "action_system_shutdown",
		Kind:        abi.KindAction,
		Description: "Fires once as the host begins a graceful shutdown. Carries no sensitive data.",
	},
}

// Hooks returns the complete hook map. Callers must treat it as read-only;
// it is the same backing map on every call.
func Hooks() map[string]HookDef {
	return hooks
}

// IsValid reports whether name is a hook the host knows about.
func IsValid(name string) bool {
	_, ok := hooks[name]
	return ok
}

// Get returns the definition for name, if any.
func Get(name string) (HookDef, bool) {
	def, ok := hooks[name]
	return def, ok
}

// RequiredCapability returns the capability name hooked registration for
// name would require, or "" if none or the hook is unknown (callers must
// check IsValid separately — this function alone cannot distinguish "no
// requirement" from "unknown hook").
func RequiredCapability(name string) string {
	return hooks[name].RequiredCapability
}
